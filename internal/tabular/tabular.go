// Package tabular renders dataset records as delimited text with a header row.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"example.com/personalize-go/internal/dataset"
)

// DefaultDelimiter separates columns unless configured otherwise.
const DefaultDelimiter = ','

// SchemaMismatchError reports a record whose columns differ from the header.
type SchemaMismatchError struct {
	Row    int
	Header []string
	Got    []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("record %d columns %v do not match header %v", e.Row, e.Got, e.Header)
}

// Serializer writes records with the configured delimiter.
type Serializer struct {
	delimiter rune
}

// New returns a serializer for delimiter, falling back to a comma for the zero rune.
func New(delimiter rune) *Serializer {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	return &Serializer{delimiter: delimiter}
}

// ParseDelimiter validates a single-character delimiter setting.
func ParseDelimiter(raw string) (rune, error) {
	if raw == "" {
		return DefaultDelimiter, nil
	}
	r, size := utf8.DecodeRuneInString(raw)
	if size != len(raw) || r == utf8.RuneError || r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("invalid csv delimiter %q", raw)
	}
	return r, nil
}

// Serialize renders the header derived from the first record followed by one line per record.
// Every record must carry the same ordered field names.
func (s *Serializer) Serialize(records []dataset.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, dataset.ErrEmptyInput
	}
	header := records[0].Names()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = s.delimiter
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(header))
	for i, rec := range records {
		if names := rec.Names(); !slices.Equal(names, header) {
			return nil, &SchemaMismatchError{Row: i, Header: header, Got: names}
		}
		for j, f := range rec {
			row[j] = formatValue(f.Value)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
