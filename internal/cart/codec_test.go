package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func TestDecodeItems_LegacyFormat(t *testing.T) {
	// written by the storefront before currency and line ids existed
	data := []byte(`[{"id":12,"name":"Black abaya","price":199.5,"image":"abaya.jpg","quantity":2},
		{"id":"scarf-3","name":"Scarf","price":"35","image":"scarf.jpg","quantity":0}]`)

	items, err := decodeItems(data, DefaultCurrency)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "12", items[0].ProductID)
	assert.Equal(t, "199.5", items[0].Price.Amount.String())
	assert.Equal(t, "SAR", items[0].Price.Currency.String())
	assert.Equal(t, legacyLineID(0, "12"), items[0].LineID)
	assert.Equal(t, 2, items[0].Quantity)

	assert.Equal(t, "scarf-3", items[1].ProductID)
	assert.Equal(t, "35", items[1].Price.Amount.String())
	assert.Equal(t, 1, items[1].Quantity, "stored quantity below one is clamped")
	assert.NotEqual(t, items[0].LineID, items[1].LineID)
}

func TestDecodeItems_LegacyLineIDsAreStable(t *testing.T) {
	data := []byte(`[{"id":12,"price":10,"quantity":1},{"id":12,"price":10,"quantity":1}]`)

	first, err := decodeItems(data, DefaultCurrency)
	require.NoError(t, err)

	second, err := decodeItems(data, DefaultCurrency)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].LineID, second[0].LineID)
	assert.Equal(t, first[1].LineID, second[1].LineID)
	assert.NotEqual(t, first[0].LineID, first[1].LineID, "same product at two positions")

	stored := uuid.New()
	withID, err := decodeItems([]byte(`[{"id":"1","price":"1","quantity":1,"line_id":"`+stored.String()+`"}]`), DefaultCurrency)
	require.NoError(t, err)
	assert.Equal(t, stored, withID[0].LineID)
}

func TestDecodeItems_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantError string
	}{
		{
			name:      "not json",
			data:      `{oops`,
			wantError: "json.Unmarshal",
		},
		{
			name:      "object instead of list",
			data:      `{"id":"1"}`,
			wantError: "json.Unmarshal",
		},
		{
			name:      "unknown currency",
			data:      `[{"id":"1","price":"1","currency":"ZZZ","quantity":1}]`,
			wantError: "currency[ZZZ] is not valid",
		},
		{
			name:      "bad line id",
			data:      `[{"id":"1","price":"1","quantity":1,"line_id":"nope"}]`,
			wantError: "line_id[nope] is not valid",
		},
		{
			name:      "id is an object",
			data:      `[{"id":{},"price":"1","quantity":1}]`,
			wantError: "json.Unmarshal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeItems([]byte(tt.data), currency.EUR)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestEncodeItems_EmptyCartIsEmptyList(t *testing.T) {
	data, err := encodeItems(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}
