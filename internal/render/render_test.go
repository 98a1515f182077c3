package render_test

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/render"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func TestFormat(t *testing.T) {
	cart := domain.Cart{Items: []domain.CartItem{
		{
			ProductID: "1",
			LineID:    uuid.New(),
			Name:      "Black abaya",
			Image:     "abaya.jpg",
			Price:     domain.Money{Amount: decimal.NewFromInt(10), Currency: currency.USD},
			Quantity:  2,
		},
		{
			ProductID: "2",
			LineID:    uuid.New(),
			Name:      "Scarf",
			Image:     "scarf.jpg",
			Price:     domain.Money{Amount: decimal.NewFromInt(5), Currency: currency.USD},
			Quantity:  3,
		},
	}}

	out, err := render.Format(cart, currency.EUR)
	require.NoError(t, err)

	for _, want := range []string{"PRODUCT", "Black abaya", "scarf.jpg", "10.00 USD", "20.00 USD", "15.00 USD", "Total: 35.00 USD"} {
		assert.Contains(t, out, want)
	}
}

func TestFormat_Empty(t *testing.T) {
	out, err := render.Format(domain.Cart{}, currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, render.EmptyCartMessage, out)
}

func TestRenderers(t *testing.T) {
	var buf bytes.Buffer

	render.NewTable(&buf, currency.EUR, nil).Render(t.Context(), domain.Cart{})
	render.NewCount(&buf).ShowCount(t.Context(), 3)

	assert.Equal(t, render.EmptyCartMessage+"\ncart: 3\n", buf.String())
}
