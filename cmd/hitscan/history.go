package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/hitscan/internal/aggregate"
	"github.com/nao1215/hitscan/internal/config"
	"github.com/nao1215/hitscan/internal/database"
	"github.com/nao1215/hitscan/internal/model"
	"github.com/nao1215/hitscan/internal/report"
)

const (
	defaultHistoryLimit = 20
	latestRun           = "latest"
	dateLayout          = "2006-01-02 15:04:05"
)

// errNoRuns is returned when a run is requested from an empty database.
var errNoRuns = errors.New("no runs stored yet: use 'hitscan crawl' first")

// NewHistoryCmd creates the history command.
// It reads runs stored by crawl from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored crawl runs",
		Long: `History lists the crawl runs stored in the history database, shows one
run again or follows a single machine number across runs.

A shown run is aggregated again from its stored hits, so it always
reflects the current deduplication and summary rules.

Examples:
  # List the latest runs
  hitscan history

  # Show the summary of the latest run
  hitscan history --run latest

  # Show run 3 as Markdown and write its CSV files to ./out
  hitscan history --run 3 --markdown --csv out

  # Show every stored hit of machine 1024
  hitscan history --machine 1024`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs listed (0 for all)")
	cmd.Flags().StringP("run", "r", "",
		`Show a run by ID, or "latest"`)
	cmd.Flags().String("machine", "",
		"Show every stored hit of a machine number")
	cmd.Flags().String("csv", "",
		"Write the CSV files of the shown run to this directory")
	cmd.Flags().BoolP("json", "j", false,
		"Output the shown run as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the shown run as Markdown")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	runArg, err := flags.GetString("run")
	if err != nil {
		return err
	}
	machine, err := flags.GetString("machine")
	if err != nil {
		return err
	}
	if runArg != "" && machine != "" {
		return errors.New("--run and --machine cannot be used together")
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	// Validate before opening the database so a bad argument leaves no file.
	var machineID model.Identifier
	if machine != "" {
		id, ok := model.NormalizeIdentifier(machine)
		if !ok {
			return fmt.Errorf("invalid machine number: %q", machine)
		}
		machineID = id
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	setupLogger(cmd)
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case machineID != "":
		return showMachineHistory(ctx, db, machineID, out)
	case runArg != "":
		csvDir, err := flags.GetString("csv")
		if err != nil {
			return err
		}
		r, err := loadRun(ctx, db, runArg)
		if err != nil {
			return err
		}
		if csvDir != "" {
			files, err := report.ExportCSV(csvDir, r, time.Now())
			if err != nil {
				return fmt.Errorf("failed to write CSV files: %w", err)
			}
			for _, f := range []string{files.Detail, files.Summary} {
				if f != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", f)
				}
			}
		}
		return writeRun(r, out, jsonOutput, markdownOutput)
	default:
		limit, err := flags.GetInt("limit")
		if err != nil {
			return err
		}
		return listRuns(ctx, db, limit, out)
	}
}

// listRuns prints the stored runs, newest first.
func listRuns(ctx context.Context, db *database.CrawlDB, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'hitscan crawl <listing-url>' to crawl a hall.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Started", "Duration", "Status", "Cards", "Empty", "Hits", "Machines", "Listings"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.StartedAt.Local().Format(dateLayout),
			formatDuration(run.StartedAt, run.FinishedAt),
			run.Status,
			run.Cards,
			run.EmptyCards,
			run.DetailRows,
			run.SummaryRows,
			strings.Join(run.StartURLs, "\n"),
		})
	}
	t.Render()

	fmt.Fprintln(out, "\nUse 'hitscan history --run <id>' to show a run.")
	return nil
}

func formatDuration(started, finished time.Time) string {
	if started.IsZero() || finished.IsZero() || finished.Before(started) {
		return "-"
	}
	return finished.Sub(started).Round(time.Second).String()
}

// loadRun loads a stored run and aggregates its hits again.
func loadRun(ctx context.Context, db *database.CrawlDB, arg string) (*model.CrawlReport, error) {
	var id int64
	if arg == latestRun {
		latest, err := db.LatestRunID(ctx)
		if errors.Is(err, database.ErrRunNotFound) {
			return nil, errNoRuns
		}
		if err != nil {
			return nil, err
		}
		id = latest
	} else {
		parsed, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid run ID %q: use a number or %q", arg, latestRun)
		}
		id = parsed
	}

	r, err := db.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	hits, err := db.RunHits(ctx, id)
	if err != nil {
		return nil, err
	}
	result := aggregate.Finalize(hits)
	r.Details = result.Details
	r.Summary = result.Summary
	r.SetStatus(result.Status)
	return r, nil
}

func writeRun(r *model.CrawlReport, out io.Writer, jsonOutput, markdownOutput bool) error {
	var w report.Writer
	switch {
	case jsonOutput:
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewTableWriter(out)
	}
	if _, err := w.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// showMachineHistory prints every stored hit of a machine, newest run
// first, followed by per-run counts.
func showMachineHistory(ctx context.Context, db *database.CrawlDB, id model.Identifier, out io.Writer) error {
	hits, err := db.MachineHistory(ctx, id)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintf(out, "No hits stored for machine %s.\n", id)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Machine " + id.String())
	t.AppendHeader(table.Row{"Run", "Kind", "Games", "Scraped"})
	var big, reg int
	for _, h := range hits {
		scraped := "-"
		if !h.ScrapedAt.IsZero() {
			scraped = h.ScrapedAt.Local().Format(dateLayout)
		}
		t.AppendRow(table.Row{h.RunID, h.Kind, h.GameCount, scraped})
		switch h.Kind {
		case model.KindBIG:
			big++
		case model.KindREG:
			reg++
		}
	}
	t.AppendFooter(table.Row{"", "BIG " + strconv.Itoa(big), "REG " + strconv.Itoa(reg), ""})
	t.Render()
	return nil
}
