package models

import "time"

// Payout item statuses as reported by PayPal payout-item webhook events.
// SUBMITTED is the local pre-webhook state recorded at issuance time.
const (
	PayoutStatusSubmitted = "SUBMITTED"
	PayoutStatusSucceeded = "SUCCEEDED"
	PayoutStatusFailed    = "FAILED"
	PayoutStatusUnclaimed = "UNCLAIMED"
	PayoutStatusRefunded  = "REFUNDED"
)

// PayoutItem stores the latest known state of a single payout receiver entry.
// Keyed by the provider-assigned payout_item_id once webhook events arrive;
// rows created at issuance time are keyed by the sender item id until then.
type PayoutItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ItemID        string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"item_id"`
	BatchID       string    `gorm:"type:varchar(191);index" json:"batch_id"`
	SenderItemID  string    `gorm:"type:varchar(191);index" json:"sender_item_id"`
	Receiver      string    `gorm:"type:varchar(200)" json:"receiver"`
	AmountValue   string    `gorm:"type:varchar(20)" json:"amount_value"`
	Currency      string    `gorm:"type:varchar(3)" json:"currency"`
	Status        string    `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID string    `gorm:"type:varchar(191);default:''" json:"transaction_id"`
	LastEventType string    `gorm:"type:varchar(100);default:''" json:"last_event_type"`
	ErrorsJSON    string    `gorm:"type:text" json:"errors_json,omitempty"`
	ResourceJSON  string    `gorm:"type:longtext" json:"resource_json,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
