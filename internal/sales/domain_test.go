package sales

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validItem() Item {
	return Item{
		ID:          uuid.New(),
		ProductID:   uuid.New(),
		ProductName: "Widget",
		Quantity:    2,
		UnitPrice:   money("10.00"),
		Discount:    money("1.00"),
	}
}

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Item)
		want   []string
	}{
		{
			name:   "valid item",
			mutate: func(*Item) {},
		},
		{
			name:   "nil product",
			mutate: func(i *Item) { i.ProductID = uuid.Nil },
			want:   []string{"product id is required"},
		},
		{
			name:   "zero quantity",
			mutate: func(i *Item) { i.Quantity = 0; i.Discount = decimal.Zero },
			want:   []string{"quantity must be greater than zero"},
		},
		{
			name:   "negative unit price",
			mutate: func(i *Item) { i.UnitPrice = money("-1"); i.Discount = decimal.Zero },
			want: []string{
				"unit price must be greater than zero",
				"discount must not exceed quantity times unit price",
			},
		},
		{
			name:   "negative discount",
			mutate: func(i *Item) { i.Discount = money("-0.01") },
			want:   []string{"discount must not be negative"},
		},
		{
			name:   "discount above gross",
			mutate: func(i *Item) { i.Discount = money("20.01") },
			want:   []string{"discount must not exceed quantity times unit price"},
		},
		{
			name:   "discount equal to gross",
			mutate: func(i *Item) { i.Discount = money("20.00") },
		},
		{
			name: "every rule broken at once",
			mutate: func(i *Item) {
				i.ProductID = uuid.Nil
				i.Quantity = -1
				i.UnitPrice = decimal.Zero
				i.Discount = money("-5")
			},
			want: []string{
				"product id is required",
				"quantity must be greater than zero",
				"unit price must be greater than zero",
				"discount must not be negative",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(&item)

			ok, messages := item.Validate()
			assert.Equal(t, len(tt.want) == 0, ok)
			assert.Equal(t, tt.want, messages)
		})
	}
}

func TestLineTotalFollowsFields(t *testing.T) {
	item := validItem()
	assert.True(t, money("19").Equal(item.LineTotal()), "got %s", item.LineTotal())

	item.Quantity = 3
	assert.True(t, money("29").Equal(item.LineTotal()), "got %s", item.LineTotal())

	item.Discount = decimal.Zero
	item.UnitPrice = money("0.10")
	assert.True(t, money("0.30").Equal(item.LineTotal()), "got %s", item.LineTotal())
}

func TestSaleValidateAggregatesItemMessages(t *testing.T) {
	bad := validItem()
	bad.Quantity = 0
	bad.Discount = decimal.Zero
	worse := validItem()
	worse.ProductID = uuid.Nil

	sale := &Sale{Items: []Item{validItem(), bad, worse}}
	ok, messages := sale.Validate()

	assert.False(t, ok)
	assert.Equal(t, []string{
		"item 2: quantity must be greater than zero",
		"item 3: product id is required",
	}, messages)
}

func TestSaleValidateRejectsDuplicateItemIDs(t *testing.T) {
	first := validItem()
	second := validItem()
	second.ID = first.ID

	ok, messages := (&Sale{Items: []Item{first, second}}).Validate()
	assert.False(t, ok)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "item 2: duplicate item id")
}

func TestSaleValidateEmptySale(t *testing.T) {
	ok, messages := (&Sale{}).Validate()
	assert.True(t, ok)
	assert.Empty(t, messages)
}

func TestItemJSONCarriesLineTotal(t *testing.T) {
	raw, err := json.Marshal(validItem())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "19", decoded["line_total"])
	assert.Equal(t, "Widget", decoded["product_name"])
}
