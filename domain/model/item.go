package model

import (
	"fmt"
	"math"
)

// Payload keys of an item record.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldPrice     = "price"
	FieldInventory = "inventory"
	FieldBrand     = "brand"
)

// Item is one row of an item table.
type Item struct {
	// ID is unique within its table; the same ID may exist in other tables.
	ID string `db:"id" json:"id"`
	// Name is the display name of the item.
	Name string `db:"name" json:"name"`
	// Price is a non-negative integer amount.
	Price int64 `db:"price" json:"price"`
	// Inventory is the stock count. Unguarded decrements may drive it negative.
	Inventory int64 `db:"inventory" json:"inventory"`
	// Brand only exists in tables created by the current schema revision.
	Brand *string `db:"brand" json:"brand,omitempty"`
}

// CanonicalColumns lists the columns of an item table in the current schema
// revision, in DDL order.
var CanonicalColumns = []string{FieldID, FieldName, FieldPrice, FieldInventory, FieldBrand}

// DecodeItem converts an untyped key/value payload into an Item. index is the
// position of the payload in its batch and is reported in errors.
//
// id and name must be strings, price a non-negative integer, inventory an
// integer, and brand (optional) a string or null. Unknown keys are ignored.
func DecodeItem(index int, payload map[string]any) (Item, error) {
	if payload == nil {
		return Item{}, &DecodeError{Index: index, Reason: "record is null"}
	}

	var item Item
	var err error
	if item.ID, err = requireString(index, payload, FieldID); err != nil {
		return Item{}, err
	}
	if item.Name, err = requireString(index, payload, FieldName); err != nil {
		return Item{}, err
	}
	if item.Price, err = requireInteger(index, payload, FieldPrice); err != nil {
		return Item{}, err
	}
	if item.Price < 0 {
		return Item{}, &DecodeError{Index: index, Field: FieldPrice, Reason: "must not be negative"}
	}
	if item.Inventory, err = requireInteger(index, payload, FieldInventory); err != nil {
		return Item{}, err
	}

	if raw, ok := payload[FieldBrand]; ok && raw != nil {
		brand, ok := raw.(string)
		if !ok {
			return Item{}, &DecodeError{Index: index, Field: FieldBrand, Reason: typeReason("string", raw)}
		}
		item.Brand = &brand
	}
	return item, nil
}

// DecodeItems decodes every payload, stopping at the first failure.
func DecodeItems(payloads []map[string]any) ([]Item, error) {
	items := make([]Item, 0, len(payloads))
	for i, payload := range payloads {
		item, err := DecodeItem(i, payload)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Payload converts the item back into the untyped form accepted by DecodeItem.
func (i Item) Payload() map[string]any {
	payload := map[string]any{
		FieldID:        i.ID,
		FieldName:      i.Name,
		FieldPrice:     i.Price,
		FieldInventory: i.Inventory,
	}
	if i.Brand != nil {
		payload[FieldBrand] = *i.Brand
	}
	return payload
}

// AddInventory returns stock + delta, or ErrValidation when the sum does not
// fit in an int64.
func AddInventory(stock, delta int64) (int64, error) {
	if (delta > 0 && stock > math.MaxInt64-delta) || (delta < 0 && stock < math.MinInt64-delta) {
		return 0, fmt.Errorf("%w: inventory %d%+d overflows int64", ErrValidation, stock, delta)
	}
	return stock + delta, nil
}

func requireString(index int, payload map[string]any, field string) (string, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return "", &DecodeError{Index: index, Field: field, Reason: "missing required field"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &DecodeError{Index: index, Field: field, Reason: typeReason("string", raw)}
	}
	return s, nil
}

func requireInteger(index int, payload map[string]any, field string) (int64, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return 0, &DecodeError{Index: index, Field: field, Reason: "missing required field"}
	}
	n, ok := toInt64(raw)
	if !ok {
		return 0, &DecodeError{Index: index, Field: field, Reason: typeReason("integer", raw)}
	}
	return n, nil
}

// int64er is satisfied by encoding/json.Number and compatible number types.
type int64er interface {
	Int64() (int64, error)
}

// toInt64 accepts Go integer kinds, integral floats (JSON numbers decoded
// into any) and json.Number-like values.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case int64er:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func uintToInt64(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func typeReason(want string, got any) string {
	return "expected " + want + ", got " + typeName(got)
}

func typeName(v any) string {
	if _, ok := toInt64(v); ok {
		return "integer"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case float32, float64, int64er:
		return "non-integer number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "unsupported value"
	}
}
