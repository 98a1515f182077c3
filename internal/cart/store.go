package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// ItemsKey is the storage key holding the JSON-encoded cart.
const ItemsKey = "cartItems"

const (
	msgAdded    = "Product added to cart"
	msgRemoved  = "Product removed from cart"
	msgCleared  = "Cart cleared"
	msgNotFound = "Cart item not found"
)

var errLineNotFound = errors.New("cart line not found")

var DefaultCurrency = currency.MustParseISO("SAR")

type store struct {
	storage   port.Storage
	notifier  port.Notifier
	renderer  port.Renderer
	counter   port.CountDisplay
	currency  currency.Unit
	metrics   *Metrics
	logger    *zap.Logger
	newLineID func() uuid.UUID
}

type Option func(*store)

func WithNotifier(n port.Notifier) Option {
	return func(s *store) { s.notifier = n }
}

func WithRenderer(r port.Renderer) Option {
	return func(s *store) { s.renderer = r }
}

func WithCountDisplay(c port.CountDisplay) Option {
	return func(s *store) { s.counter = c }
}

// WithCurrency sets the currency for new items and for items stored without one.
func WithCurrency(unit currency.Unit) Option {
	return func(s *store) { s.currency = unit }
}

func WithMetrics(m *Metrics) Option {
	return func(s *store) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *store) { s.logger = l }
}

func New(storage port.Storage, opts ...Option) (port.CartStore, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is nil")
	}

	s := &store{
		storage:   storage,
		notifier:  nopNotifier{},
		renderer:  nopRenderer{},
		counter:   nopCounter{},
		currency:  DefaultCurrency,
		logger:    zap.NewNop(),
		newLineID: uuid.New,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *store) Add(ctx context.Context, productID, name string, price decimal.Decimal, image string, quantity int) (err error) {
	defer func() { s.metrics.observe("add", err, false) }()

	if productID == "" {
		return fmt.Errorf("productID is empty")
	}
	if price.IsNegative() {
		return fmt.Errorf("price is negative")
	}

	quantity = clampQuantity(quantity)

	cart, err := s.mutate(ctx, func(cart domain.Cart) (domain.Cart, error) {
		if i := cart.IndexOf(productID); i >= 0 {
			cart.Items[i].Quantity = addQuantity(cart.Items[i].Quantity, quantity)
			return cart, nil
		}

		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: productID,
			LineID:    s.newLineID(),
			Name:      name,
			Price:     domain.Money{Amount: price, Currency: s.currency},
			Image:     image,
			Quantity:  quantity,
		})
		return cart, nil
	})
	if err != nil {
		return fmt.Errorf("s.mutate: %w", err)
	}

	s.counter.ShowCount(ctx, cart.Count())
	s.notifier.Notify(ctx, msgAdded, domain.SeveritySuccess)

	return nil
}

func (s *store) UpdateQuantity(ctx context.Context, index, delta int) error {
	return s.editQuantity(ctx, "update_quantity", byIndex(index), func(q int) int { return addQuantity(q, delta) })
}

func (s *store) SetQuantity(ctx context.Context, index, quantity int) error {
	return s.editQuantity(ctx, "set_quantity", byIndex(index), func(int) int { return quantity })
}

func (s *store) UpdateQuantityByLine(ctx context.Context, lineID uuid.UUID, delta int) error {
	return s.editQuantity(ctx, "update_quantity", byLine(lineID), func(q int) int { return addQuantity(q, delta) })
}

func (s *store) SetQuantityByLine(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return s.editQuantity(ctx, "set_quantity", byLine(lineID), func(int) int { return quantity })
}

func (s *store) RemoveItem(ctx context.Context, index int) error {
	return s.remove(ctx, byIndex(index))
}

func (s *store) RemoveLine(ctx context.Context, lineID uuid.UUID) error {
	return s.remove(ctx, byLine(lineID))
}

func (s *store) Clear(ctx context.Context) (err error) {
	defer func() { s.metrics.observe("clear", err, false) }()

	if err := s.storage.Remove(ctx, ItemsKey); err != nil {
		return fmt.Errorf("storage.Remove: %w", err)
	}

	s.renderer.Render(ctx, domain.Cart{})
	s.counter.ShowCount(ctx, 0)
	s.notifier.Notify(ctx, msgCleared, domain.SeveritySuccess)

	return nil
}

func (s *store) Items(ctx context.Context) ([]domain.CartItem, error) {
	cart, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.load: %w", err)
	}

	return cart.Items, nil
}

func (s *store) Total(ctx context.Context) (domain.Money, error) {
	cart, err := s.load(ctx)
	if err != nil {
		return domain.Money{}, fmt.Errorf("s.load: %w", err)
	}

	total, err := cart.Total(s.currency)
	if err != nil {
		return domain.Money{}, fmt.Errorf("cart.Total: %w", err)
	}

	return total, nil
}

func (s *store) Count(ctx context.Context) (int, error) {
	cart, err := s.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("s.load: %w", err)
	}

	return cart.Count(), nil
}

// locator resolves a line position within the cart, -1 when absent.
type locator struct {
	find   func(domain.Cart) int
	fields []zap.Field
}

func byIndex(index int) locator {
	return locator{
		find: func(cart domain.Cart) int {
			if index < 0 || index >= len(cart.Items) {
				return -1
			}
			return index
		},
		fields: []zap.Field{zap.Int("index", index)},
	}
}

func byLine(lineID uuid.UUID) locator {
	return locator{
		find:   func(cart domain.Cart) int { return cart.IndexOfLine(lineID) },
		fields: []zap.Field{zap.Stringer("line_id", lineID)},
	}
}

func (s *store) editQuantity(ctx context.Context, op string, loc locator, next func(int) int) (err error) {
	var noop bool
	defer func() { s.metrics.observe(op, err, noop) }()

	cart, err := s.mutate(ctx, func(cart domain.Cart) (domain.Cart, error) {
		i := loc.find(cart)
		if i < 0 {
			return cart, errLineNotFound
		}

		cart.Items[i].Quantity = clampQuantity(next(cart.Items[i].Quantity))
		return cart, nil
	})
	if errors.Is(err, errLineNotFound) {
		noop = true
		s.warnNotFound(ctx, op, loc)
		return nil
	}
	if err != nil {
		return fmt.Errorf("s.mutate: %w", err)
	}

	s.renderer.Render(ctx, cart)
	s.counter.ShowCount(ctx, cart.Count())

	return nil
}

func (s *store) remove(ctx context.Context, loc locator) (err error) {
	var noop bool
	defer func() { s.metrics.observe("remove", err, noop) }()

	cart, err := s.mutate(ctx, func(cart domain.Cart) (domain.Cart, error) {
		i := loc.find(cart)
		if i < 0 {
			return cart, errLineNotFound
		}

		cart.Items = slices.Delete(cart.Items, i, i+1)
		return cart, nil
	})
	if errors.Is(err, errLineNotFound) {
		noop = true
		s.warnNotFound(ctx, "remove", loc)
		return nil
	}
	if err != nil {
		return fmt.Errorf("s.mutate: %w", err)
	}

	s.renderer.Render(ctx, cart)
	s.counter.ShowCount(ctx, cart.Count())
	s.notifier.Notify(ctx, msgRemoved, domain.SeveritySuccess)

	return nil
}

func (s *store) warnNotFound(ctx context.Context, op string, loc locator) {
	s.logger.Warn("cart line not found, ignoring", append([]zap.Field{zap.String("op", op)}, loc.fields...)...)
	s.notifier.Notify(ctx, msgNotFound, domain.SeverityWarning)
}

func (s *store) load(ctx context.Context) (domain.Cart, error) {
	data, err := s.storage.Get(ctx, ItemsKey)
	if errors.Is(err, port.ErrNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("storage.Get: %w", err)
	}

	return s.decode(data), nil
}

// decode treats a malformed stored value as an empty cart; the next write
// replaces it.
func (s *store) decode(data []byte) domain.Cart {
	items, err := decodeItems(data, s.currency)
	if err != nil {
		s.logger.Warn("stored cart is malformed, treating as empty", zap.Error(err))
		return domain.Cart{}
	}

	return domain.Cart{Items: items}
}

// mutate runs fn over the stored cart and persists the result. The write is
// atomic when the storage implements port.Updater.
func (s *store) mutate(ctx context.Context, fn func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	var result domain.Cart

	apply := func(value []byte, found bool) ([]byte, error) {
		var cart domain.Cart
		if found {
			cart = s.decode(value)
		}

		updated, err := fn(cart)
		if err != nil {
			return nil, err
		}

		data, err := encodeItems(updated.Items)
		if err != nil {
			return nil, fmt.Errorf("encodeItems: %w", err)
		}

		result = updated
		return data, nil
	}

	if updater, ok := s.storage.(port.Updater); ok {
		if err := updater.Update(ctx, ItemsKey, apply); err != nil {
			return domain.Cart{}, fmt.Errorf("storage.Update: %w", err)
		}
		return result, nil
	}

	value, err := s.storage.Get(ctx, ItemsKey)
	found := true
	if errors.Is(err, port.ErrNotFound) {
		found = false
	} else if err != nil {
		return domain.Cart{}, fmt.Errorf("storage.Get: %w", err)
	}

	data, err := apply(value, found)
	if err != nil {
		return domain.Cart{}, err
	}

	if err := s.storage.Set(ctx, ItemsKey, data); err != nil {
		return domain.Cart{}, fmt.Errorf("storage.Set: %w", err)
	}

	return result, nil
}

// addQuantity saturates at math.MaxInt instead of wrapping around.
func addQuantity(q, delta int) int {
	if delta > 0 && q > math.MaxInt-delta {
		return math.MaxInt
	}
	return q + delta
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, domain.Severity) {}

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, domain.Cart) {}

type nopCounter struct{}

func (nopCounter) ShowCount(context.Context, int) {}
