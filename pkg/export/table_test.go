package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title: "Invoices",
		Columns: []Column{
			{Key: "id", Label: "ID"},
			{Key: "amount", Label: "Amount", Numeric: true},
		},
		Rows: []map[string]string{
			{"id": "inv-1", "amount": "400000"},
			{"id": "inv-2", "amount": "900000"},
		},
	}
}

func TestTableCSV(t *testing.T) {
	content, err := sampleTable().CSV()
	require.NoError(t, err)
	assert.Equal(t, "ID,Amount\ninv-1,400000\ninv-2,900000\n", string(content))
}

func TestTableCSVRequiresColumns(t *testing.T) {
	_, err := Table{}.CSV()
	assert.Error(t, err)
}

func TestTablePDF(t *testing.T) {
	content, err := sampleTable().PDF()
	require.NoError(t, err)
	assert.NotEmpty(t, content)
	assert.Equal(t, "%PDF", string(content[:4]))
}
