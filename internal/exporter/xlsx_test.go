package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteCustomersXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCustomersXLSX(&buf, sampleCustomers()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{CustomerSheet}, f.GetSheetList())

	rows, err := f.GetRows(CustomerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CustomerHeaders, rows[0])
	assert.Equal(t, "AB12-CD34-EF56-GH78", rows[1][0])
	assert.Equal(t, "Tienda, La Esquina", rows[1][3])
	assert.Equal(t, "suscripcion", rows[2][4])
}

func TestWriteCustomersXLSX_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCustomersXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(CustomerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, CustomerHeaders, rows[0])
}
