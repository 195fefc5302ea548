package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Name", "Planned", "Actual"},
		Rows: []map[string]string{
			{"Name": "Ada Lovelace", "Planned": "Attending", "Actual": "Attended"},
			{"Name": "Alan Turing", "Planned": "Rescheduled", "Actual": "Not logged"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Planned,Actual", lines[0])
	assert.Equal(t, "Alan Turing,Rescheduled,Not logged", lines[2])
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Name", "Actual"},
		Rows:    []map[string]string{{"Name": "=HYPERLINK(\"x\")", "Actual": "Attended"}, {"Name": "Bo"}},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, `'=HYPERLINK("x")`, records[1][0])
	assert.Equal(t, []string{"Bo", ""}, records[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Year 10 Maths", "Monday 06/10/2025", "16:00 - 17:30")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleDataset())
	require.Len(t, widths, 3)
	var sum float64
	for _, w := range widths {
		sum += w
	}
	assert.InDelta(t, pageWidthLandscape, sum, 0.001)
	assert.Greater(t, widths[0], widths[2])
}
