package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Cart struct {
	Items []CartItem
}

type CartItem struct {
	ProductID string
	LineID    uuid.UUID
	Name      string
	Price     Money
	Image     string
	Quantity  int
}

func (i CartItem) LineTotal() Money {
	return i.Price.Mul(i.Quantity)
}

// Count is the number of line entries, not the sum of quantities.
func (c Cart) Count() int {
	return len(c.Items)
}

// Total sums the line totals. An empty cart totals zero in the fallback currency.
func (c Cart) Total(fallback currency.Unit) (Money, error) {
	total := Money{Amount: decimal.Zero, Currency: fallback}
	if len(c.Items) > 0 {
		total.Currency = c.Items[0].Price.Currency
	}

	for _, item := range c.Items {
		var err error
		total, err = total.Add(item.LineTotal())
		if err != nil {
			return Money{}, fmt.Errorf("line[%s]: %w", item.LineID, err)
		}
	}

	return total, nil
}

func (c Cart) IndexOf(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) IndexOfLine(lineID uuid.UUID) int {
	for i, item := range c.Items {
		if item.LineID == lineID {
			return i
		}
	}
	return -1
}
