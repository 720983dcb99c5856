package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Header is the label row of an imported sheet.
type Header []string

// NewHeader create new Header.
func NewHeader(h []string) Header {
	return Header(h)
}

// Index returns the position of label in the header, or -1. Labels are
// compared after trimming and NFC normalization, so a label typed with
// combining diacritics matches the precomposed form stored by spreadsheets.
func (h Header) Index(label string) int {
	want := normalizeLabel(label)
	if want == "" {
		return -1
	}
	for i, v := range h {
		if normalizeLabel(v) == want {
			return i
		}
	}
	return -1
}

// Record is one data row of an imported sheet.
type Record []string

// NewRecord create new Record.
func NewRecord(r []string) Record {
	return Record(r)
}

// Get returns the cell at i, or "" when the row is shorter than the header.
func (r Record) Get(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Sheet is a parsed import source: one header row and its data rows.
type Sheet struct {
	name    string
	header  Header
	records []Record
}

// NewSheet create new Sheet.
func NewSheet(name string, header Header, records []Record) *Sheet {
	return &Sheet{
		name:    name,
		header:  header,
		records: records,
	}
}

// Name returns the sheet or file name the rows came from.
func (s *Sheet) Name() string {
	return s.name
}

// Header return sheet header.
func (s *Sheet) Header() Header {
	return s.header
}

// Records return sheet records.
func (s *Sheet) Records() []Record {
	return s.records
}

func normalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
