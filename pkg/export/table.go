package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Column is one labelled column of an export table. Numeric columns are
// right-aligned in the PDF rendering.
type Column struct {
	Key     string
	Label   string
	Numeric bool
}

// Table holds ordered columns and string-valued rows keyed by column key.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// CSV renders the table with a header row of column labels.
func (t Table) CSV() ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("export table has no columns")
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	labels := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		labels[i] = col.Label
	}
	if err := w.Write(labels); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row[col.Key]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
