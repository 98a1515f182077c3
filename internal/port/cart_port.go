package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/shopspring/decimal"
)

type CartStore interface {
	Add(ctx context.Context, productID, name string, price decimal.Decimal, image string, quantity int) error
	UpdateQuantity(ctx context.Context, index, delta int) error
	SetQuantity(ctx context.Context, index, quantity int) error
	UpdateQuantityByLine(ctx context.Context, lineID uuid.UUID, delta int) error
	SetQuantityByLine(ctx context.Context, lineID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, index int) error
	RemoveLine(ctx context.Context, lineID uuid.UUID) error
	Clear(ctx context.Context) error

	Items(ctx context.Context) ([]domain.CartItem, error)
	Total(ctx context.Context) (domain.Money, error)
	Count(ctx context.Context) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, message string, severity domain.Severity)
}

type Renderer interface {
	Render(ctx context.Context, cart domain.Cart)
}

type CountDisplay interface {
	ShowCount(ctx context.Context, count int)
}
