package payout

import (
	"sync"
	"time"

	"github.com/match3rewards/payout-relay/app/models"
	"gorm.io/gorm"
)

// memoryRepository is a map-backed Repository used by tests and local runs
// without a database. Production wiring uses the GORM repository.
type memoryRepository struct {
	mu     sync.Mutex
	items  map[string]models.PayoutItem
	events map[string]models.PayoutWebhookEvent
	nextID uint
}

// NewMemoryRepository creates an in-memory payout repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		items:  make(map[string]models.PayoutItem),
		events: make(map[string]models.PayoutWebhookEvent),
	}
}

func (r *memoryRepository) UpsertPayoutItem(item *models.PayoutItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.items[item.ItemID]; ok {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		if item.SenderItemID == "" {
			item.SenderItemID = existing.SenderItemID
		}
		if item.Receiver == "" {
			item.Receiver = existing.Receiver
		}
	} else {
		r.nextID++
		item.ID = r.nextID
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	r.items[item.ItemID] = *item
	return nil
}

func (r *memoryRepository) GetPayoutItemByItemID(itemID string) (*models.PayoutItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (r *memoryRepository) CreatePayoutItemIfNotExists(item *models.PayoutItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ItemID]; ok {
		return nil
	}
	r.nextID++
	item.ID = r.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	r.items[item.ItemID] = *item
	return nil
}

func (r *memoryRepository) CreateWebhookEventIfNotExists(event *models.PayoutWebhookEvent) (bool, *models.PayoutWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, &stored, nil
	}
	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	r.events[key] = *event
	stored := *event
	return true, &stored, nil
}

func (r *memoryRepository) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, event := range r.events {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			event.ProcessingError = processingError
			event.UpdatedAt = now
			r.events[key] = event
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
