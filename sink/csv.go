package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/model"
)

// WriteCSV writes the report as comma separated text: the header row followed by
// one row per report row. With includeIndex every line starts with an unnamed
// 0-based row index column whose header cell is empty.
func WriteCSV(w io.Writer, report *model.Report, includeIndex bool) error {
	cw := csv.NewWriter(w)

	header := report.Header()
	if includeIndex {
		header = append([]string{""}, header...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range report.Rows {
		record := report.Record(i)
		if includeIndex {
			record = append([]string{strconv.Itoa(i)}, record...)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteReportFile creates path (and its directory) and writes the report into it.
func WriteReportFile(path string, report *model.Report, includeIndex bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: failed to create output directory %s: %v", common.ErrIO, dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: failed to create report file %s: %v", common.ErrIO, path, err)
	}

	if err := WriteCSV(file, report, includeIndex); err != nil {
		_ = file.Close()
		return fmt.Errorf("%w: failed to write report file %s: %v", common.ErrIO, path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: failed to close report file %s: %v", common.ErrIO, path, err)
	}
	return nil
}
