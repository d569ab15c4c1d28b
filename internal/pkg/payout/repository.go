package payout

import (
	"time"

	"github.com/match3rewards/payout-relay/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the payout service.
type Repository interface {
	UpsertPayoutItem(item *models.PayoutItem) error
	GetPayoutItemByItemID(itemID string) (*models.PayoutItem, error)
	CreatePayoutItemIfNotExists(item *models.PayoutItem) error
	CreateWebhookEventIfNotExists(event *models.PayoutWebhookEvent) (bool, *models.PayoutWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payout repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) UpsertPayoutItem(item *models.PayoutItem) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "item_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"transaction_id",
			"last_event_type",
			"errors_json",
			"resource_json",
			"updated_at",
		}),
	}).Create(item).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("item_id = ?", item.ItemID).First(item).Error
}

func (r *gormRepository) GetPayoutItemByItemID(itemID string) (*models.PayoutItem, error) {
	var item models.PayoutItem
	err := r.db.Where("item_id = ?", itemID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *gormRepository) CreatePayoutItemIfNotExists(item *models.PayoutItem) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "item_id"},
		},
		DoNothing: true,
	}).Create(item).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PayoutWebhookEvent) (bool, *models.PayoutWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PayoutWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PayoutWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
