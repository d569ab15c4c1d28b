package paypal

import (
	"errors"
	"testing"

	"github.com/match3rewards/payout-relay/app/models"
)

func TestPayoutStatusForEvent(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
		wantOK    bool
	}{
		{eventType: EventPayoutItemSucceeded, want: models.PayoutStatusSucceeded, wantOK: true},
		{eventType: EventPayoutItemFailed, want: models.PayoutStatusFailed, wantOK: true},
		{eventType: EventPayoutItemUnclaimed, want: models.PayoutStatusUnclaimed, wantOK: true},
		{eventType: EventPayoutItemRefunded, want: models.PayoutStatusRefunded, wantOK: true},
		{eventType: "PAYMENT.PAYOUTS-ITEM.BLOCKED", want: "", wantOK: false},
		{eventType: "CHECKOUT.ORDER.APPROVED", want: "", wantOK: false},
		{eventType: "", want: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := PayoutStatusForEvent(tt.eventType)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("PayoutStatusForEvent(%q) = (%q, %v), want (%q, %v)", tt.eventType, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestClassifyPayoutItemEvent(t *testing.T) {
	body := []byte(`{
		"id": "WH-EVT-1",
		"event_type": "PAYMENT.PAYOUTS-ITEM.SUCCEEDED",
		"resource": {
			"payout_item_id": "ITEM-1",
			"sender_item_id": "item_abc",
			"payout_batch_id": "BATCH-1",
			"transaction_id": "TXN-1",
			"transaction_status": "SUCCESS"
		}
	}`)

	ev, err := ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	classified, ok, err := ClassifyPayoutItemEvent(ev)
	if err != nil || !ok {
		t.Fatalf("classify: ok=%v err=%v", ok, err)
	}
	if classified.ItemID != "ITEM-1" {
		t.Fatalf("expected provider item id preferred, got %q", classified.ItemID)
	}
	if classified.Status != models.PayoutStatusSucceeded {
		t.Fatalf("status = %q, want %q", classified.Status, models.PayoutStatusSucceeded)
	}
	if classified.BatchID != "BATCH-1" || classified.TransactionID != "TXN-1" {
		t.Fatalf("unexpected batch/txn: %q %q", classified.BatchID, classified.TransactionID)
	}
}

func TestClassifyPayoutItemEvent_SenderItemIDFallback(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{
		"event_type": "PAYMENT.PAYOUTS-ITEM.FAILED",
		"resource": {"sender_item_id": "item_abc", "errors": {"name": "RECEIVER_UNREGISTERED"}}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	classified, ok, err := ClassifyPayoutItemEvent(ev)
	if err != nil || !ok {
		t.Fatalf("classify: ok=%v err=%v", ok, err)
	}
	if classified.ItemID != "item_abc" {
		t.Fatalf("expected sender item id fallback, got %q", classified.ItemID)
	}
	if classified.ErrorsJSON == "" {
		t.Fatalf("expected provider errors preserved")
	}
}

func TestClassifyPayoutItemEvent_NoItemID(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{
		"event_type": "PAYMENT.PAYOUTS-ITEM.SUCCEEDED",
		"resource": {"transaction_id": "TXN-1"}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, ok, err := ClassifyPayoutItemEvent(ev)
	if !ok {
		t.Fatalf("expected payout-item event type to match")
	}
	if !errors.Is(err, ErrNoItemID) {
		t.Fatalf("expected ErrNoItemID, got %v", err)
	}
}

func TestClassifyPayoutItemEvent_UnknownType(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{
		"event_type": "CHECKOUT.ORDER.APPROVED",
		"resource": {"payout_item_id": "ITEM-1"}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	classified, ok, err := ClassifyPayoutItemEvent(ev)
	if ok || err != nil || classified != nil {
		t.Fatalf("expected unknown event type to be skipped, got ok=%v err=%v", ok, err)
	}
}

func TestClassifyPayoutItemEvent_NullErrors(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{
		"event_type": "PAYMENT.PAYOUTS-ITEM.SUCCEEDED",
		"resource": {"payout_item_id": "ITEM-1", "errors": null}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	classified, ok, err := ClassifyPayoutItemEvent(ev)
	if err != nil || !ok {
		t.Fatalf("classify: ok=%v err=%v", ok, err)
	}
	if classified.ErrorsJSON != "" {
		t.Fatalf("expected empty errors for null, got %q", classified.ErrorsJSON)
	}
}
