package sink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportColumns = []string{"audienceWatchRatio", "relativeRetentionPerformance", "views"}

func testReport(t *testing.T, rows ...[]interface{}) *model.Report {
	t.Helper()
	report, err := model.NewReport(reportColumns, nil, rows)
	require.NoError(t, err)
	return report
}

func TestWriteCSVWithIndex(t *testing.T) {
	report := testReport(t, []interface{}{"Nl5ELeRtrcY", 0.42, 1.05, float64(1000)})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report, true))

	assert.Equal(t,
		",video,audienceWatchRatio,relativeRetentionPerformance,views\n"+
			"0,Nl5ELeRtrcY,0.42,1.05,1000\n",
		buf.String())
}

func TestWriteCSVWithoutIndex(t *testing.T) {
	report := testReport(t, []interface{}{"Nl5ELeRtrcY", 0.42, 1.05, float64(1000)})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report, false))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "video,audienceWatchRatio,relativeRetentionPerformance,views", lines[0])
	assert.Equal(t, "Nl5ELeRtrcY,0.42,1.05,1000", lines[1])
}

func TestWriteCSVRowCount(t *testing.T) {
	for _, n := range []int{0, 1, 7, 50} {
		rows := make([][]interface{}, n)
		for i := range rows {
			rows[i] = []interface{}{"vid", float64(i) / 10, 1.0, float64(i)}
		}
		report := testReport(t, rows...)

		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, report, true))

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		assert.Len(t, lines, n+1, "rows + header for n=%d", n)
		assert.True(t, strings.HasSuffix(lines[0], "video,audienceWatchRatio,relativeRetentionPerformance,views"))
	}
}

func TestWriteCSVQuotesFields(t *testing.T) {
	report := testReport(t, []interface{}{"a,b", "say \"hi\"", 1.0, 2.0})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report, false))
	assert.Contains(t, buf.String(), "\"a,b\",\"say \"\"hi\"\"\",1,2\n")
}

func TestWriteReportFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	report := testReport(t,
		[]interface{}{"Nl5ELeRtrcY", 0.42, 1.05, float64(1000)},
		[]interface{}{"Nl5ELeRtrcY", 0.5, 0.95, float64(12)},
	)

	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "nested", "second.csv")
	require.NoError(t, WriteReportFile(first, report, true))
	require.NoError(t, WriteReportFile(second, report, true))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteReportFileFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	// a regular file cannot be used as a directory
	err := WriteReportFile(filepath.Join(blocker, "report.csv"), testReport(t), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrIO))
}
