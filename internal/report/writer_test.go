package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/hitscan/internal/model"
)

var testTime = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

// createTestReport creates a finished report with two machines and an
// empty card.
func createTestReport() *model.CrawlReport {
	report := model.NewCrawlReport("https://hall.example/nc-v05-001.php")
	report.StartedAt = testTime
	report.AddCard(model.CardOutcome{
		Card:      model.Card{Index: 0, Title: "ジャグラー"},
		SourceURL: "https://hall.example/nc-v05-002.php",
		Navigated: true,
		Tiers: []model.TierStat{
			{Tier: "direct_link", Targets: 2, Visits: 2, Records: 3},
		},
	}, []model.DetailRow{
		{Identifier: "12", GameCount: 45, Kind: model.KindBIG, SourceURL: "https://hall.example/d?cd_dai=12", ScrapedAt: testTime},
		{Identifier: "12", GameCount: 120, Kind: model.KindBIG, SourceURL: "https://hall.example/d?cd_dai=12", ScrapedAt: testTime},
		{Identifier: "7", GameCount: 12, Kind: model.KindREG, SourceURL: "https://hall.example/d?cd_dai=7", ScrapedAt: testTime},
	})
	report.AddCard(model.CardOutcome{Card: model.Card{Index: 1}, Empty: true}, nil)
	report.Summary = []model.AggregationRow{
		{Identifier: "7", CountREG: 1, MeanREG: 12},
		{Identifier: "12", CountBIG: 2, MeanBIG: 82.5},
	}
	report.SetStatus(model.StatusComplete)
	report.FinishedAt = testTime.Add(time.Minute)
	return report
}

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	report := createTestReport()
	report.Details = append(report.Details, model.DetailRow{GameCount: 5, Kind: model.KindBIG})

	expected := Totals{Cards: 2, EmptyCards: 1, DetailRows: 4, Unresolved: 1, Machines: 2, BIG: 3, REG: 1}
	if diff := cmp.Diff(expected, ComputeTotals(report)); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line, got %q", buf.String())
		}

		var parsed model.CrawlReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.StatusText != "COMPLETE" {
			t.Errorf("expected status COMPLETE, got %q", parsed.StatusText)
		}
		if diff := cmp.Diff(createTestReport().Summary, parsed.Summary); diff != "" {
			t.Errorf("summary mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("indent options", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n>\t\"start_urls\"") {
			t.Errorf("expected prefixed tab indentation, got %q", buf.String()[:40])
		}
	})

	t.Run("source URLs are not HTML-escaped", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Details[0].SourceURL = "https://hall.example/d?cd_m=1&cd_dai=12"
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "cd_m=1&cd_dai=12") {
			t.Errorf("expected a literal ampersand, got %s", buf.String())
		}
	})

	t.Run("error is serialized", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.SetError(errors.New("listing unreachable"))
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"error": "listing unreachable"`) {
			t.Errorf("expected the error message in output: %s", buf.String())
		}
	})
}

func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "1.2.3", WithPrettyPrint()).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed JSONReport
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", parsed.Version)
	}
	if parsed.Totals.BIG != 2 || parsed.Totals.REG != 1 {
		t.Errorf("unexpected totals %+v", parsed.Totals)
	}
}

func TestTableWriter(t *testing.T) {
	t.Parallel()

	t.Run("prints summary rows", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewTableWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}
		output := buf.String()
		for _, want := range []string{"status: COMPLETE", "cards: 2 (empty 1)", "82.5", "count_BIG", "mean_REG", "total", "12"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("no table without summary", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://hall.example/")
		var buf bytes.Buffer
		if _, err := NewTableWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "count_BIG") {
			t.Errorf("expected no table: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "status: EMPTY") {
			t.Errorf("expected the EMPTY status: %s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		report   func() *model.CrawlReport
		contains []string
		excludes []string
	}{
		{
			name:   "complete report",
			report: createTestReport,
			contains: []string{
				"# hitscan Report",
				"[!TIP]",
				"```mermaid",
				"BIG",
				"## Machine Summary",
				"82.5",
				"direct_link:3/2",
				"ジャグラー",
				"empty",
			},
			excludes: []string{"[!CAUTION]"},
		},
		{
			name: "unresolved report",
			report: func() *model.CrawlReport {
				r := model.NewCrawlReport("https://hall.example/")
				r.AddCard(model.CardOutcome{Card: model.Card{Index: 0}}, []model.DetailRow{{GameCount: 10, Kind: model.KindBIG}})
				r.SetStatus(model.StatusUnresolved)
				return r
			},
			contains: []string{"[!WARNING]", "No machine could be summarized."},
		},
		{
			name: "empty report with error",
			report: func() *model.CrawlReport {
				r := model.NewCrawlReport("https://hall.example/")
				r.SetError(errors.New("listing unreachable"))
				return r
			},
			contains: []string{"[!CAUTION]", "listing unreachable", "No cards were processed."},
			excludes: []string{"```mermaid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := NewMarkdownWriter(&buf).Write(tt.report()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			output := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("expected %q in output:\n%s", want, output)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(output, unwanted) {
					t.Errorf("did not expect %q in output:\n%s", unwanted, output)
				}
			}
		})
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var table, js bytes.Buffer
	n, err := NewMultiWriter(NewTableWriter(&table), NewJSONWriter(&js)).Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != table.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", table.Len()+js.Len(), n)
	}
	if strings.HasPrefix(table.String(), "{") || !strings.HasPrefix(js.String(), "{") {
		t.Error("expected one table and one JSON output")
	}
}

func TestWriteDetailCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rows := []model.DetailRow{
		{Identifier: "12", GameCount: 45, Kind: model.KindBIG, SourceURL: "https://hall.example/d?cd_dai=12", ScrapedAt: testTime},
		{GameCount: 3, Kind: model.KindREG, SourceURL: "https://hall.example/a,b", ScrapedAt: testTime},
	}
	if err := WriteDetailCSV(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "\ufeffidentifier,gameCount,kind,sourceUrl,scrapedAt\n" +
		"12,45,BIG,https://hall.example/d?cd_dai=12,2026-03-01T10:30:00Z\n" +
		",3,REG,\"https://hall.example/a,b\",2026-03-01T10:30:00Z\n"
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, createTestReport().Summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "\ufeffidentifier,count_BIG,count_REG,mean_BIG,mean_REG\n" +
		"7,0,1,0,12\n" +
		"12,2,0,82.5,0\n"
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	t.Run("writes both files", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "out")
		files, err := ExportCSV(dir, createTestReport(), testTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := CSVFiles{
			Detail:  filepath.Join(dir, "hits_20260301_103000.csv"),
			Summary: filepath.Join(dir, "hits_summary_20260301_103000.csv"),
		}
		if diff := cmp.Diff(expected, files); diff != "" {
			t.Errorf("files mismatch (-want +got):\n%s", diff)
		}
		for _, path := range []string{files.Detail, files.Summary} {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read %s: %v", path, err)
			}
			if !bytes.HasPrefix(data, utf8BOM) {
				t.Errorf("expected %s to start with a BOM", path)
			}
		}
	})

	t.Run("unresolved rows skip the summary", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Summary = nil
		files, err := ExportCSV(t.TempDir(), report, testTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if files.Detail == "" || files.Summary != "" {
			t.Errorf("expected only the detail file, got %+v", files)
		}
	})

	t.Run("empty report writes nothing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		files, err := ExportCSV(dir, model.NewCrawlReport(), testTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(CSVFiles{}, files); diff != "" {
			t.Errorf("expected no files (-want +got):\n%s", diff)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected an empty directory, got %d entries", len(entries))
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"ジャグラーガールズ", 5, "ジャ..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
