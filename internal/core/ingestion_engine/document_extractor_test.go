package ingestion_engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDocconvParserCSV(t *testing.T) {
	p := NewDocconvParser(false)
	data := []byte("name,city\n\"Ada\",London\n,\nGrace,\"New York\"\n")

	text, err := p.Parse(context.Background(), data, "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "name\tcity\nAda\tLondon\nGrace\tNew York", text)
}

func TestDocconvParserXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "quarter"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "revenue"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Q1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 1200))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p := NewDocconvParser(false)
	text, err := p.Parse(context.Background(), buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.NoError(t, err)
	assert.Equal(t, "quarter\trevenue\nQ1\t1200", text)
}

func TestDocconvParserRejectsCorruptSpreadsheet(t *testing.T) {
	p := NewDocconvParser(false)
	_, err := p.Parse(context.Background(), []byte("not a zip"),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	assert.Error(t, err)
}

func TestDocconvParserHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDocconvParser(false).Parse(ctx, []byte("a,b"), "text/csv")
	assert.ErrorIs(t, err, context.Canceled)
}
