package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
)

// VideoColumn is the first column of every report row: the dimension value.
const VideoColumn = "video"

// ReportQuery holds the parameters of one analytics reports.query call
type ReportQuery struct {
	IDs        string    `json:"ids"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Metrics    []string  `json:"metrics"`
	Dimensions string    `json:"dimensions"`
	Filters    string    `json:"filters"`
}

// MetricList returns the comma joined metric names, as the API expects them.
func (q ReportQuery) MetricList() string {
	return strings.Join(q.Metrics, ",")
}

// ReportRow is one video's metric tuple. Values are aligned with Report.Columns.
type ReportRow struct {
	VideoID string        `json:"video_id"`
	Values  []interface{} `json:"values"`
}

// Report is the flat table returned by the analytics query
type Report struct {
	Columns []string    `json:"columns"`
	Rows    []ReportRow `json:"rows"`
}

// Header returns the table header: the video column followed by the metric columns.
func (r *Report) Header() []string {
	return append([]string{VideoColumn}, r.Columns...)
}

// Record returns row i as strings, in header order.
func (r *Report) Record(i int) []string {
	row := r.Rows[i]
	record := make([]string, 0, len(row.Values)+1)
	record = append(record, row.VideoID)
	for _, v := range row.Values {
		record = append(record, FormatValue(v))
	}
	return record
}

// NewReport validates a raw analytics result and turns it into a Report.
//
// headers are the column names reported by the API; when present they must be
// exactly the video column followed by columns. Every row must hold a non-empty
// video id followed by one value per column. Violations wrap common.ErrSchemaMismatch.
// A result without rows is an empty report.
func NewReport(columns []string, headers []string, rows [][]interface{}) (*Report, error) {
	expected := append([]string{VideoColumn}, columns...)

	if len(headers) > 0 {
		if len(headers) != len(expected) {
			return nil, fmt.Errorf("%w: expected columns %v, got %v", common.ErrSchemaMismatch, expected, headers)
		}
		for i := range headers {
			if headers[i] != expected[i] {
				return nil, fmt.Errorf("%w: expected columns %v, got %v", common.ErrSchemaMismatch, expected, headers)
			}
		}
	}

	report := &Report{
		Columns: append([]string(nil), columns...),
		Rows:    make([]ReportRow, 0, len(rows)),
	}

	for i, raw := range rows {
		if len(raw) != len(expected) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", common.ErrSchemaMismatch, i, len(raw), len(expected))
		}
		videoID, ok := raw[0].(string)
		if !ok || videoID == "" {
			return nil, fmt.Errorf("%w: row %d has no video id (got %v)", common.ErrSchemaMismatch, i, raw[0])
		}
		report.Rows = append(report.Rows, ReportRow{
			VideoID: videoID,
			Values:  append([]interface{}(nil), raw[1:]...),
		})
	}

	return report, nil
}

// FormatValue renders a cell value the way it appears in the report file.
// Whole numbers are written without a decimal point.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
