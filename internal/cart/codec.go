package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// legacyLineNamespace seeds line ids for items stored before line ids existed.
var legacyLineNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("cartstore:"+ItemsKey))

type storedItem struct {
	ID       looseString     `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
	LineID   string          `json:"line_id,omitempty"`
}

// looseString accepts both JSON strings and numbers; catalog pages have
// written numeric product ids.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}

	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*s = looseString(num.String())
	return nil
}

func encodeItems(items []domain.CartItem) ([]byte, error) {
	stored := make([]storedItem, 0, len(items))

	for _, item := range items {
		stored = append(stored, storedItem{
			ID:       looseString(item.ProductID),
			Name:     item.Name,
			Price:    item.Price.Amount,
			Currency: item.Price.Currency.String(),
			Image:    item.Image,
			Quantity: item.Quantity,
			LineID:   item.LineID.String(),
		})
	}

	return json.Marshal(stored)
}

func decodeItems(data []byte, fallback currency.Unit) ([]domain.CartItem, error) {
	var stored []storedItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	items := make([]domain.CartItem, 0, len(stored))

	for i, s := range stored {
		item, err := mapStoredItemToDomain(i, s, fallback)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}

		items = append(items, item)
	}

	return items, nil
}

func mapStoredItemToDomain(position int, s storedItem, fallback currency.Unit) (domain.CartItem, error) {
	unit := fallback
	if s.Currency != "" {
		parsed, err := currency.ParseISO(s.Currency)
		if err != nil {
			return domain.CartItem{}, fmt.Errorf("currency[%s] is not valid: %w", s.Currency, err)
		}
		unit = parsed
	}

	lineID := legacyLineID(position, string(s.ID))
	if s.LineID != "" {
		parsed, err := uuid.Parse(s.LineID)
		if err != nil {
			return domain.CartItem{}, fmt.Errorf("line_id[%s] is not valid: %w", s.LineID, err)
		}
		lineID = parsed
	}

	return domain.CartItem{
		ProductID: string(s.ID),
		LineID:    lineID,
		Name:      s.Name,
		Price:     domain.Money{Amount: s.Price, Currency: unit},
		Image:     s.Image,
		Quantity:  clampQuantity(s.Quantity),
	}, nil
}

// legacyLineID is stable across reads of the same stored value, so a line id
// handed out before the first write still addresses that line.
func legacyLineID(position int, productID string) uuid.UUID {
	return uuid.NewSHA1(legacyLineNamespace, []byte(productID+"/"+strconv.Itoa(position)))
}

func clampQuantity(q int) int {
	return max(q, 1)
}
