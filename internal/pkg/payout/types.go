package payout

// SubmittedItem is the locally issued payout entry recorded after the
// provider accepted a batch, before any webhook arrived for it.
type SubmittedItem struct {
	BatchID      string
	SenderItemID string
	Receiver     string
	AmountValue  string
	Currency     string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
