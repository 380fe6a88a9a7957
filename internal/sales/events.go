package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names a lifecycle event variant.
type EventKind string

const (
	KindSaleCreated   EventKind = "SaleCreated"
	KindSaleUpdated   EventKind = "SaleUpdated"
	KindSaleCancelled EventKind = "SaleCancelled"
	KindItemCancelled EventKind = "ItemCancelled"
)

// Event is a lifecycle fact published after a successful commit.
// The set of implementations is closed to this package.
type Event interface {
	Kind() EventKind
	SaleID() uuid.UUID
	OccurredAt() time.Time
	String() string
	lifecycleEvent()
}

type saleEvent struct {
	saleID     uuid.UUID
	occurredAt time.Time
}

func (e saleEvent) SaleID() uuid.UUID     { return e.saleID }
func (e saleEvent) OccurredAt() time.Time { return e.occurredAt }
func (saleEvent) lifecycleEvent()         {}

func (e saleEvent) line(kind EventKind) string {
	return fmt.Sprintf("event=%s sale_id=%s occurred_at=%s", kind, e.saleID, e.occurredAt.Format(time.RFC3339Nano))
}

// SaleCreated is published once a new sale is committed.
type SaleCreated struct{ saleEvent }

// SaleUpdated is published once an edited sale is committed.
type SaleUpdated struct{ saleEvent }

// SaleCancelled is published once a sale cancellation is committed.
type SaleCancelled struct{ saleEvent }

// ItemCancelled is published once a line item cancellation is committed.
type ItemCancelled struct {
	saleEvent
	itemID uuid.UUID
}

func NewSaleCreated(saleID uuid.UUID, at time.Time) SaleCreated {
	return SaleCreated{saleEvent{saleID: saleID, occurredAt: at}}
}

func NewSaleUpdated(saleID uuid.UUID, at time.Time) SaleUpdated {
	return SaleUpdated{saleEvent{saleID: saleID, occurredAt: at}}
}

func NewSaleCancelled(saleID uuid.UUID, at time.Time) SaleCancelled {
	return SaleCancelled{saleEvent{saleID: saleID, occurredAt: at}}
}

func NewItemCancelled(saleID, itemID uuid.UUID, at time.Time) ItemCancelled {
	return ItemCancelled{saleEvent: saleEvent{saleID: saleID, occurredAt: at}, itemID: itemID}
}

func (SaleCreated) Kind() EventKind   { return KindSaleCreated }
func (SaleUpdated) Kind() EventKind   { return KindSaleUpdated }
func (SaleCancelled) Kind() EventKind { return KindSaleCancelled }
func (ItemCancelled) Kind() EventKind { return KindItemCancelled }

// ItemID is the cancelled line item.
func (e ItemCancelled) ItemID() uuid.UUID { return e.itemID }

func (e SaleCreated) String() string   { return e.line(KindSaleCreated) }
func (e SaleUpdated) String() string   { return e.line(KindSaleUpdated) }
func (e SaleCancelled) String() string { return e.line(KindSaleCancelled) }

func (e ItemCancelled) String() string {
	return fmt.Sprintf("event=%s sale_id=%s item_id=%s occurred_at=%s",
		KindItemCancelled, e.saleID, e.itemID, e.occurredAt.Format(time.RFC3339Nano))
}

// ItemIDOf returns the item id carried by e, or uuid.Nil for sale-level events.
func ItemIDOf(e Event) uuid.UUID {
	if ic, ok := e.(ItemCancelled); ok {
		return ic.itemID
	}
	return uuid.Nil
}
