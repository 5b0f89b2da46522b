package models

import "time"

const (
	HistoryStatusSuccess = "success"
	HistoryStatusFailed  = "failed"
)

// MaxHistoryEntries is the soft cap enforced by the store on append; the
// oldest entries are trimmed once the collection grows past it.
const MaxHistoryEntries = 10000

// MaxErrorMessageLen truncates PurchaseHistoryEntry.ErrorMessage on write.
const MaxErrorMessageLen = 500

// Price is the OVH checkout price breakdown, captured from the cart
// validation step for audit purposes.
type Price struct {
	WithTax      float64 `json:"withTax"`
	WithoutTax   float64 `json:"withoutTax"`
	Tax          float64 `json:"tax"`
	CurrencyCode string  `json:"currencyCode"`
}

// PurchaseHistoryEntry is an append-only record of one order attempt's
// outcome. Successes are numbered per-task via Sequence, 1-based and
// gap-free up to QueueTask.Purchased.
type PurchaseHistoryEntry struct {
	ID             string `json:"id"`
	TaskID         string `json:"taskId"`
	AccountID      string `json:"accountId"`
	PlanCode       string `json:"planCode"`
	Datacenter     string `json:"datacenter"`
	Options        []string `json:"options"`
	Status         string `json:"status"`
	OrderID        string `json:"orderId,omitempty"`
	OrderURL       string `json:"orderUrl,omitempty"`
	Price          *Price `json:"price,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	Sequence       int    `json:"sequence,omitempty"`
	PurchaseTime   time.Time `json:"purchaseTime"`
}

// TruncateError applies MaxErrorMessageLen to a raw error message before it
// is stored, matching spec's 500-char audit truncation rule.
func TruncateError(msg string) string {
	if len(msg) <= MaxErrorMessageLen {
		return msg
	}
	return msg[:MaxErrorMessageLen]
}
