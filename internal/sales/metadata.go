package sales

import "github.com/shopspring/decimal"

// SalesMetadata summarizes a list of sales.
type SalesMetadata struct {
	Quantity    int             `json:"quantity"`
	Active      int             `json:"active"`
	Cancelled   int             `json:"cancelled"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Summarize counts sales by state and adds up the line totals of active
// items on active sales.
func Summarize(all []*Sale) SalesMetadata {
	md := SalesMetadata{TotalAmount: decimal.Zero}
	for _, sale := range all {
		md.Quantity++
		if sale.Cancelled {
			md.Cancelled++
			continue
		}
		md.Active++
		for _, item := range sale.Items {
			if !item.Cancelled {
				md.TotalAmount = md.TotalAmount.Add(item.LineTotal())
			}
		}
	}
	return md
}
