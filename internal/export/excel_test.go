package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"alpr-service/internal/plate"
)

func TestWriteExcel(t *testing.T) {
	rec, ok := plate.ProcessDetection("d1234abc", 0.92, plate.BBox{10, 20, 100, 50})
	require.True(t, ok)

	detectedAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, []Row{{DetectedAt: detectedAt, Source: "gate-1", Record: rec, FirstSeen: true}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "2026-03-04T05:06:07Z", rows[1][0])
	assert.Equal(t, "gate-1", rows[1][1])
	assert.Equal(t, "D 1234 ABC", rows[1][2])
	assert.Equal(t, "d1234abc", rows[1][3])
	assert.Equal(t, "D", rows[1][4])
	assert.Equal(t, "Bandung, Bandung Barat, Cimahi", rows[1][5])
	assert.Equal(t, "Kota Bandung", rows[1][6])
	assert.Equal(t, "Genap", rows[1][7])
	assert.Equal(t, "0.92", rows[1][8])
	assert.Equal(t, "100", rows[1][11])
	assert.Equal(t, "TRUE", rows[1][13])
}

func TestWriteExcelEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
