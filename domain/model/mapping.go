package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnMapping names the header label that holds each item field in an
// imported sheet. Brand is optional.
type ColumnMapping struct {
	ID        string
	Name      string
	Price     string
	Inventory string
	Brand     string
}

// IsZero reports whether no label has been set.
func (m ColumnMapping) IsZero() bool {
	return m == ColumnMapping{}
}

// InferColumnMapping picks header labels equal (ignoring case) to the item
// field names. Fields without a matching label stay empty.
func InferColumnMapping(h Header) ColumnMapping {
	find := func(field string) string {
		for _, label := range h {
			if strings.EqualFold(normalizeLabel(label), field) {
				return label
			}
		}
		return ""
	}
	return ColumnMapping{
		ID:        find(FieldID),
		Name:      find(FieldName),
		Price:     find(FieldPrice),
		Inventory: find(FieldInventory),
		Brand:     find(FieldBrand),
	}
}

// ColumnIndex holds resolved header positions of a ColumnMapping.
// brand is -1 when the mapping has no brand column.
type ColumnIndex struct {
	id        int
	name      int
	price     int
	inventory int
	brand     int
}

// Resolve locates every mapped label in h. A missing required label is an
// ErrValidation; a brand label that is set but absent is also rejected.
func (m ColumnMapping) Resolve(h Header) (ColumnIndex, error) {
	idx := ColumnIndex{brand: -1}
	required := []struct {
		field string
		label string
		dst   *int
	}{
		{FieldID, m.ID, &idx.id},
		{FieldName, m.Name, &idx.name},
		{FieldPrice, m.Price, &idx.price},
		{FieldInventory, m.Inventory, &idx.inventory},
	}
	for _, r := range required {
		if strings.TrimSpace(r.label) == "" {
			return ColumnIndex{}, fmt.Errorf("%w: no column mapped to %s", ErrValidation, r.field)
		}
		i := h.Index(r.label)
		if i < 0 {
			return ColumnIndex{}, fmt.Errorf("%w: column %q for %s not found in header", ErrValidation, r.label, r.field)
		}
		*r.dst = i
	}
	if strings.TrimSpace(m.Brand) != "" {
		i := h.Index(m.Brand)
		if i < 0 {
			return ColumnIndex{}, fmt.Errorf("%w: column %q for %s not found in header", ErrValidation, m.Brand, FieldBrand)
		}
		idx.brand = i
	}
	return idx, nil
}

// Payload converts a sheet row into the untyped record accepted by
// DecodeItem. Numeric cells are parsed into integers; index is the record
// position used in a DecodeError.
func (ci ColumnIndex) Payload(index int, r Record) (map[string]any, error) {
	payload := map[string]any{}

	if v := strings.TrimSpace(r.Get(ci.id)); v != "" {
		payload[FieldID] = v
	}
	if v := strings.TrimSpace(r.Get(ci.name)); v != "" {
		payload[FieldName] = v
	}
	for _, f := range []struct {
		field string
		col   int
	}{
		{FieldPrice, ci.price},
		{FieldInventory, ci.inventory},
	} {
		cell := strings.TrimSpace(r.Get(f.col))
		if cell == "" {
			continue
		}
		n, err := parseIntegerCell(cell)
		if err != nil {
			return nil, &DecodeError{Index: index, Field: f.field, Reason: fmt.Sprintf("%q is not an integer", cell)}
		}
		payload[f.field] = n
	}
	if ci.brand >= 0 {
		if v := strings.TrimSpace(r.Get(ci.brand)); v != "" {
			payload[FieldBrand] = v
		}
	}
	return payload, nil
}

// parseIntegerCell accepts "10" and spreadsheet renderings such as "10.0".
func parseIntegerCell(cell string) (int64, error) {
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	n, ok := floatToInt64(f)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
