package sales

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale represents a sales order and the line items it owns.
type Sale struct {
	ID           uuid.UUID `json:"id"`
	OrderNumber  int64     `json:"order_number"`
	CreatedAt    time.Time `json:"created_at"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Branch       string    `json:"branch"`
	Cancelled    bool      `json:"cancelled"`
	Items        []Item    `json:"items"`
}

// Item is a quantity of one product within a Sale.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Cancelled   bool            `json:"cancelled"`
}

// LineTotal returns quantity * unit price - discount.
func (i Item) LineTotal() decimal.Decimal {
	return i.gross().Sub(i.Discount)
}

func (i Item) gross() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MarshalJSON adds the derived line_total to the encoded item.
func (i Item) MarshalJSON() ([]byte, error) {
	type item Item
	return json.Marshal(struct {
		item
		LineTotal decimal.Decimal `json:"line_total"`
	}{item(i), i.LineTotal()})
}

// Validate evaluates every item rule and returns all violations.
func (i Item) Validate() (bool, []string) {
	var messages []string

	if i.ProductID == uuid.Nil {
		messages = append(messages, "product id is required")
	}
	if i.Quantity <= 0 {
		messages = append(messages, "quantity must be greater than zero")
	}
	if !i.UnitPrice.IsPositive() {
		messages = append(messages, "unit price must be greater than zero")
	}
	if i.Discount.IsNegative() {
		messages = append(messages, "discount must not be negative")
	}
	if i.Discount.GreaterThan(i.gross()) {
		messages = append(messages, "discount must not exceed quantity times unit price")
	}

	return len(messages) == 0, messages
}

// Validate re-validates every item of the sale and rejects repeated item ids.
// Item messages are prefixed with the 1-based item position.
func (s *Sale) Validate() (bool, []string) {
	messages := duplicateItemIDs(s.Items)

	for idx, item := range s.Items {
		if ok, itemMessages := item.Validate(); !ok {
			for _, m := range itemMessages {
				messages = append(messages, fmt.Sprintf("item %d: %s", idx+1, m))
			}
		}
	}

	return len(messages) == 0, messages
}

// duplicateItemIDs reports every item whose non-nil id already appeared
// earlier in items.
func duplicateItemIDs(items []Item) []string {
	var messages []string
	seen := make(map[uuid.UUID]struct{}, len(items))
	for idx, item := range items {
		if item.ID == uuid.Nil {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			messages = append(messages, fmt.Sprintf("item %d: duplicate item id %s", idx+1, item.ID))
		}
		seen[item.ID] = struct{}{}
	}
	return messages
}

// findItem returns the index of the item with the given id, or -1.
func (s *Sale) findItem(id uuid.UUID) int {
	for idx := range s.Items {
		if s.Items[idx].ID == id {
			return idx
		}
	}
	return -1
}
