package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nao1215/hitscan/internal/model"
)

// TimestampLayout names the CSV files of one run.
const TimestampLayout = "20060102_150405"

// utf8BOM lets spreadsheet software detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var detailHeader = []string{"identifier", "gameCount", "kind", "sourceUrl", "scrapedAt"}

// CSVFiles are the paths written by ExportCSV. Summary is empty when no
// summary file was written.
type CSVFiles struct {
	Detail  string
	Summary string
}

// ExportCSV writes hits_<ts>.csv and, when the report has a summary,
// hits_summary_<ts>.csv into dir. Nothing is written for an empty report.
func ExportCSV(dir string, report *model.CrawlReport, now time.Time) (CSVFiles, error) {
	var files CSVFiles
	if len(report.Details) == 0 {
		return files, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return files, fmt.Errorf("failed to create output directory: %w", err)
	}

	ts := now.Format(TimestampLayout)
	files.Detail = filepath.Join(dir, "hits_"+ts+".csv")
	if err := writeFile(files.Detail, func(w io.Writer) error {
		return WriteDetailCSV(w, report.Details)
	}); err != nil {
		return CSVFiles{}, err
	}

	if len(report.Summary) == 0 {
		return files, nil
	}
	files.Summary = filepath.Join(dir, "hits_summary_"+ts+".csv")
	if err := writeFile(files.Summary, func(w io.Writer) error {
		return WriteSummaryCSV(w, report.Summary)
	}); err != nil {
		return files, err
	}
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteDetailCSV writes one line per hit row. Unresolved rows have an
// empty identifier.
func WriteDetailCSV(w io.Writer, rows []model.DetailRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(detailHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Identifier.String(),
			strconv.Itoa(r.GameCount),
			r.Kind.String(),
			r.SourceURL,
			r.ScrapedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one line per machine.
func WriteSummaryCSV(w io.Writer, rows []model.AggregationRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(summaryCells(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
