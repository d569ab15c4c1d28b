package paypal

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/match3rewards/payout-relay/app/models"
)

// Payout-item webhook event types this relay acts on.
const (
	EventPayoutItemSucceeded = "PAYMENT.PAYOUTS-ITEM.SUCCEEDED"
	EventPayoutItemFailed    = "PAYMENT.PAYOUTS-ITEM.FAILED"
	EventPayoutItemUnclaimed = "PAYMENT.PAYOUTS-ITEM.UNCLAIMED"
	EventPayoutItemRefunded  = "PAYMENT.PAYOUTS-ITEM.REFUNDED"
)

// ErrNoItemID is returned when an event carries neither a payout_item_id nor
// a sender_item_id; such events cannot be reconciled and are dropped.
var ErrNoItemID = errors.New("paypal: payout item event has no stable item id")

// WebhookEvent is the decoded envelope of a provider notification. Resource is
// kept raw; only recognized event types get a typed view of it.
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

// PayoutItemResource is the typed view of a payout-item event resource.
type PayoutItemResource struct {
	PayoutItemID      string          `json:"payout_item_id"`
	SenderItemID      string          `json:"sender_item_id"`
	PayoutBatchID     string          `json:"payout_batch_id"`
	TransactionID     string          `json:"transaction_id"`
	TransactionStatus string          `json:"transaction_status"`
	Errors            json.RawMessage `json:"errors"`
}

// ParseWebhookEvent decodes a verified webhook body into its envelope.
func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// PayoutStatusForEvent maps a payout-item event type to its stored status.
// Unrecognized event types return ok=false and must not be applied.
func PayoutStatusForEvent(eventType string) (string, bool) {
	switch strings.TrimSpace(eventType) {
	case EventPayoutItemSucceeded:
		return models.PayoutStatusSucceeded, true
	case EventPayoutItemFailed:
		return models.PayoutStatusFailed, true
	case EventPayoutItemUnclaimed:
		return models.PayoutStatusUnclaimed, true
	case EventPayoutItemRefunded:
		return models.PayoutStatusRefunded, true
	default:
		return "", false
	}
}

// PayoutItemEvent is the fully classified form of a payout-item notification,
// ready to be applied to the item store.
type PayoutItemEvent struct {
	EventType     string
	Status        string
	ItemID        string
	BatchID       string
	TransactionID string
	ErrorsJSON    string
	ResourceJSON  string
}

// ClassifyPayoutItemEvent turns a webhook envelope into a storable item event.
// ok=false means the event type is not a payout-item event and should only be
// logged. ErrNoItemID means the event type matched but no item key exists.
func ClassifyPayoutItemEvent(ev *WebhookEvent) (*PayoutItemEvent, bool, error) {
	status, ok := PayoutStatusForEvent(ev.EventType)
	if !ok {
		return nil, false, nil
	}

	var res PayoutItemResource
	if len(ev.Resource) > 0 {
		if err := json.Unmarshal(ev.Resource, &res); err != nil {
			return nil, true, err
		}
	}

	// Prefer the provider-assigned item id; fall back to the sender-supplied
	// one from the original request.
	itemID := strings.TrimSpace(res.PayoutItemID)
	if itemID == "" {
		itemID = strings.TrimSpace(res.SenderItemID)
	}
	if itemID == "" {
		return nil, true, ErrNoItemID
	}

	errorsJSON := ""
	if len(res.Errors) > 0 && string(res.Errors) != "null" {
		errorsJSON = string(res.Errors)
	}

	return &PayoutItemEvent{
		EventType:     ev.EventType,
		Status:        status,
		ItemID:        itemID,
		BatchID:       strings.TrimSpace(res.PayoutBatchID),
		TransactionID: strings.TrimSpace(res.TransactionID),
		ErrorsJSON:    errorsJSON,
		ResourceJSON:  string(ev.Resource),
	}, true, nil
}
