package render

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/port"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

const EmptyCartMessage = "Your cart is empty."

var totalStyle = lipgloss.NewStyle().Bold(true)

type tableRenderer struct {
	w        io.Writer
	fallback currency.Unit
	logger   *zap.Logger
}

// NewTable renders the cart as a table on w. fallback is the currency shown
// for the total of an empty cart.
func NewTable(w io.Writer, fallback currency.Unit, logger *zap.Logger) port.Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &tableRenderer{w: w, fallback: fallback, logger: logger}
}

func (r *tableRenderer) Render(_ context.Context, cart domain.Cart) {
	out, err := Format(cart, r.fallback)
	if err != nil {
		r.logger.Warn("render cart", zap.Error(err))
		return
	}

	_, _ = fmt.Fprintln(r.w, out)
}

// Format lays out one row per line item, numbered from 1, and the cart total.
func Format(cart domain.Cart, fallback currency.Unit) (string, error) {
	if cart.Count() == 0 {
		return EmptyCartMessage, nil
	}

	total, err := cart.Total(fallback)
	if err != nil {
		return "", fmt.Errorf("cart.Total: %w", err)
	}

	rows := make([][]string, 0, cart.Count())
	for i, item := range cart.Items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Name,
			item.Image,
			item.Price.String(),
			strconv.Itoa(item.Quantity),
			item.LineTotal().String(),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "PRODUCT", "IMAGE", "PRICE", "QTY", "TOTAL").
		Rows(rows...)

	return t.String() + "\n" + totalStyle.Render("Total: "+total.String()), nil
}

type countDisplay struct {
	w io.Writer
}

func NewCount(w io.Writer) port.CountDisplay {
	return &countDisplay{w: w}
}

func (c *countDisplay) ShowCount(_ context.Context, count int) {
	_, _ = fmt.Fprintf(c.w, "cart: %d\n", count)
}
