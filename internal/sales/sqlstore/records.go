package sqlstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sales_engine/internal/sales"
)

type saleRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	OrderNumber  int64     `gorm:"not null;uniqueIndex"`
	CreatedAt    time.Time `gorm:"not null"`
	CustomerID   string    `gorm:"size:36;not null"`
	CustomerName string    `gorm:"size:200;not null"`
	Branch       string    `gorm:"size:100;not null"`
	Cancelled    bool      `gorm:"not null"`
}

func (saleRecord) TableName() string { return "sales" }

type itemRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	SaleID      string `gorm:"size:36;not null;index"`
	Position    int    `gorm:"not null"`
	ProductID   string `gorm:"size:36;not null"`
	ProductName string `gorm:"size:100;not null"`
	Quantity    int    `gorm:"not null"`
	UnitPrice   string `gorm:"not null"`
	Discount    string `gorm:"not null"`
	Cancelled   bool   `gorm:"not null"`
}

func (itemRecord) TableName() string { return "sale_items" }

func toSaleRecord(s *sales.Sale) saleRecord {
	return saleRecord{
		ID:           s.ID.String(),
		OrderNumber:  s.OrderNumber,
		CreatedAt:    s.CreatedAt,
		CustomerID:   s.CustomerID.String(),
		CustomerName: s.CustomerName,
		Branch:       s.Branch,
		Cancelled:    s.Cancelled,
	}
}

func toItemRecord(i *sales.Item, position int) itemRecord {
	return itemRecord{
		ID:          i.ID.String(),
		SaleID:      i.SaleID.String(),
		Position:    position,
		ProductID:   i.ProductID.String(),
		ProductName: i.ProductName,
		Quantity:    i.Quantity,
		UnitPrice:   i.UnitPrice.String(),
		Discount:    i.Discount.String(),
		Cancelled:   i.Cancelled,
	}
}

func (r saleRecord) toSale() (*sales.Sale, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("sale id %q: %w", r.ID, err)
	}
	customerID, err := uuid.Parse(r.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("sale %s customer id %q: %w", r.ID, r.CustomerID, err)
	}
	return &sales.Sale{
		ID:           id,
		OrderNumber:  r.OrderNumber,
		CreatedAt:    r.CreatedAt,
		CustomerID:   customerID,
		CustomerName: r.CustomerName,
		Branch:       r.Branch,
		Cancelled:    r.Cancelled,
	}, nil
}

func (r itemRecord) toItem() (sales.Item, error) {
	var (
		item sales.Item
		err  error
	)
	if item.ID, err = uuid.Parse(r.ID); err != nil {
		return item, fmt.Errorf("item id %q: %w", r.ID, err)
	}
	if item.SaleID, err = uuid.Parse(r.SaleID); err != nil {
		return item, fmt.Errorf("item %s sale id %q: %w", r.ID, r.SaleID, err)
	}
	if item.ProductID, err = uuid.Parse(r.ProductID); err != nil {
		return item, fmt.Errorf("item %s product id %q: %w", r.ID, r.ProductID, err)
	}
	if item.UnitPrice, err = decimal.NewFromString(r.UnitPrice); err != nil {
		return item, fmt.Errorf("item %s unit price %q: %w", r.ID, r.UnitPrice, err)
	}
	if item.Discount, err = decimal.NewFromString(r.Discount); err != nil {
		return item, fmt.Errorf("item %s discount %q: %w", r.ID, r.Discount, err)
	}
	item.ProductName = r.ProductName
	item.Quantity = r.Quantity
	item.Cancelled = r.Cancelled
	return item, nil
}
