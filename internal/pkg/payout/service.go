package payout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/match3rewards/payout-relay/app/models"
	"github.com/match3rewards/payout-relay/internal/pkg/paypal"
	"gorm.io/gorm"
)

// ProviderPayPal tags stored records with their originating provider.
const ProviderPayPal = "paypal"

// ErrNotFound is returned when no record exists for a payout item id.
var ErrNotFound = errors.New("payout: item not found")

// Service owns payout-item state and the webhook event journal.
type Service struct {
	repo Repository
}

// NewService creates a payout service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a payout service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// RecordSubmission persists a provider-accepted payout item in SUBMITTED
// state so later webhook events can be correlated to a local issuance.
func (s *Service) RecordSubmission(ctx context.Context, in SubmittedItem) error {
	_ = ctx
	senderItemID := strings.TrimSpace(in.SenderItemID)
	if senderItemID == "" {
		return errors.New("sender_item_id is required")
	}

	item := &models.PayoutItem{
		ItemID:       senderItemID,
		BatchID:      strings.TrimSpace(in.BatchID),
		SenderItemID: senderItemID,
		Receiver:     strings.TrimSpace(in.Receiver),
		AmountValue:  in.AmountValue,
		Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
		Status:       models.PayoutStatusSubmitted,
	}
	return s.repo.CreatePayoutItemIfNotExists(item)
}

// ApplyItemEvent overwrites the stored record for the event's payout item.
// Applying the same event twice yields the same final record. Returns the
// stored record, or ErrNoItemID/parse errors from classification.
func (s *Service) ApplyItemEvent(ctx context.Context, ev *paypal.PayoutItemEvent) (*models.PayoutItem, error) {
	_ = ctx
	if ev == nil || strings.TrimSpace(ev.ItemID) == "" {
		return nil, paypal.ErrNoItemID
	}

	item := &models.PayoutItem{
		ItemID:        ev.ItemID,
		BatchID:       ev.BatchID,
		Status:        ev.Status,
		TransactionID: ev.TransactionID,
		LastEventType: ev.EventType,
		ErrorsJSON:    ev.ErrorsJSON,
		ResourceJSON:  ev.ResourceJSON,
	}
	if err := s.repo.UpsertPayoutItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns the latest known record for a payout item id.
func (s *Service) GetItem(ctx context.Context, itemID string) (*models.PayoutItem, error) {
	_ = ctx
	id := strings.TrimSpace(itemID)
	if id == "" {
		return nil, ErrNotFound
	}
	item, err := s.repo.GetPayoutItemByItemID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without a
// provider event id are keyed by a hash of the payload.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.PayoutWebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.PayoutWebhookEvent{
		Provider:        ProviderPayPal,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
