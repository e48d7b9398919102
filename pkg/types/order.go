package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// LineItem is one product entry of an order. Name, UnitPrice and Currency are
// copied from the catalog when the order is created and never change afterwards.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Size      string          `json:"size,omitempty"`
	Currency  string          `json:"currency"`
}

// Subtotal returns unit price times quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is a ledger entry
type Order struct {
	ID        string          `json:"id"`
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	CreatedAt Timestamp       `json:"created_at"`
	Status    Status          `json:"status"`
}

// IsCancelled returns true once the order reached its terminal state
func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// Recalculate sets Total to the sum of the current items' subtotals
func (o *Order) Recalculate() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.Total = total
}

// FindItem returns the index of the first line item for productID
func (o *Order) FindItem(productID string) (int, bool) {
	idx := slices.IndexFunc(o.Items, func(item LineItem) bool {
		return item.ProductID == productID
	})
	return idx, idx >= 0
}

// RemoveItem deletes the item at idx and recomputes the total
func (o *Order) RemoveItem(idx int) LineItem {
	removed := o.Items[idx]
	o.Items = slices.Delete(o.Items, idx, idx+1)
	o.Recalculate()
	return removed
}

// Clone returns a deep copy of the order
func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Validate checks if the order is valid
func (o *Order) Validate() error {
	if o.ID == "" {
		return ErrEmptyOrderID
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}
	for _, item := range o.Items {
		if item.ProductID == "" {
			return ErrEmptyProductID
		}
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// Timestamp is a UTC instant encoded as ISO-8601. Decoding also accepts
// timestamps without a zone offset, which are read as UTC. Text that matches
// no layout decodes to the zero time and is kept verbatim, so it is written
// back unchanged.
type Timestamp struct {
	time.Time
	raw string
}

// layouts accepted when decoding, most specific first
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewTimestamp wraps t converted to UTC
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses any of the accepted layouts
func ParseTimestamp(value string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// TimestampOrRaw parses value, falling back to a zero Timestamp that keeps
// value verbatim
func TimestampOrRaw(value string) Timestamp {
	parsed, err := ParseTimestamp(value)
	if err != nil {
		return Timestamp{raw: value}
	}
	return parsed
}

// Unparsed returns the original text of a timestamp that could not be
// parsed, or "" for a valid one
func (t Timestamp) Unparsed() string {
	return t.raw
}

// String formats the timestamp as RFC 3339 in UTC
func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = TimestampOrRaw(raw)
	return nil
}
