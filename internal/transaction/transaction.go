package transaction

// Item is a snapshot of one cart line at checkout time. The unit price is
// the price that was locked when the line was added, not the current
// catalog price.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Transaction represents a completed (or queued) sale. Immutable once
// created. Server-persisted transactions get a UUID; transactions queued
// while offline carry a locally-minted `offline_` id until synced.
type Transaction struct {
	ID             string  `json:"id"`
	Items          []Item  `json:"items"`
	Total          float64 `json:"total"`
	AmountReceived float64 `json:"amountReceived"`
	Change         float64 `json:"change"`
	UserID         string  `json:"userId"`
	CreatedAt      string  `json:"createdAt"`
	// Offline marks a provisional record awaiting reconciliation.
	Offline bool `json:"offline,omitempty"`
}
