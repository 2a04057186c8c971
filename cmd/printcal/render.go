package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"printcal/internal/capture"
	"printcal/internal/config"
	"printcal/internal/ics"
	"printcal/internal/layout"
	appLog "printcal/internal/log"
	"printcal/internal/logo"
	"printcal/internal/model"
	"printcal/internal/render"
)

// renderFlags override the persisted preferences for one render.
type renderFlags struct {
	mode        string
	start       string
	pages       int
	layout      string
	paper       string
	orientation string
	out         string
	html        bool
}

func newRenderCmd(g *globalFlags) *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the calendar once to a PDF or HTML file",
		Example: `  printcal render --mode monthly --start 2024-02 --pages 3 --out q1.pdf
  printcal render --mode weekly --layout weekendFocus --html --out -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := f.apply(cfg); err != nil {
				return err
			}
			return runRender(cmd.Context(), cfg, f, cmd.OutOrStdout(), time.Now())
		},
	}

	cmd.Flags().StringVar(&f.mode, "mode", "", "View mode: monthly or weekly")
	cmd.Flags().StringVar(&f.start, "start", "", "First page, YYYY-MM or YYYY-MM-DD (default: current month)")
	cmd.Flags().IntVar(&f.pages, "pages", 0, fmt.Sprintf("Number of pages, %d to %d", config.MinPageCount, config.MaxPageCount))
	cmd.Flags().StringVar(&f.layout, "layout", "", "Weekly layout: weekdayFocus or weekendFocus")
	cmd.Flags().StringVar(&f.paper, "paper", "", "Paper size: A4 or Letter")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "Page orientation: landscape or portrait")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", `Output file, "-" for stdout (default: calendar.pdf or calendar.html)`)
	cmd.Flags().BoolVar(&f.html, "html", false, "Write HTML instead of PDF")
	return cmd
}

// apply validates the flags and writes them over cfg. The page count is
// clamped, not rejected.
func (f *renderFlags) apply(cfg *config.Config) error {
	if f.mode != "" {
		v, ok := model.ParseViewMode(f.mode)
		if !ok {
			return fmt.Errorf("invalid --mode %q", f.mode)
		}
		cfg.View = v
	}
	if f.start != "" {
		cfg.Start = f.start
	}
	if f.pages != 0 {
		cfg.PageCount = config.ClampPageCount(f.pages)
	}
	if f.layout != "" {
		l, ok := model.ParseWeeklyLayout(f.layout)
		if !ok {
			return fmt.Errorf("invalid --layout %q", f.layout)
		}
		cfg.WeeklyLayout = l
	}
	if f.paper != "" {
		p, ok := model.ParsePaperSize(f.paper)
		if !ok {
			return fmt.Errorf("invalid --paper %q", f.paper)
		}
		cfg.Paper = p
	}
	if f.orientation != "" {
		o, ok := model.ParseOrientation(f.orientation)
		if !ok {
			return fmt.Errorf("invalid --orientation %q", f.orientation)
		}
		cfg.Orientation = o
	}
	if f.out == "" {
		f.out = "calendar.pdf"
		if f.html {
			f.out = "calendar.html"
		}
	}
	return nil
}

func runRender(ctx context.Context, cfg *config.Config, f *renderFlags, stdout io.Writer, now time.Time) error {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}
	start, err := cfg.StartDate(now, loc)
	if err != nil {
		return err
	}

	events, err := ics.Resolve(ctx, ics.NewFetcher(filepath.Join(cfg.DataDir, "ics-cache"), nil), ics.SourcesFromConfig(cfg), now, loc)
	if err != nil {
		// The calendar is still printable without events.
		appLog.Error("calendar feed unavailable; rendering without events", err)
		events = nil
	}

	pages := layout.BuildPages(layout.Config{
		Mode:         cfg.View,
		Start:        start,
		PageCount:    cfg.PageCount,
		WeeklyLayout: cfg.WeeklyLayout,
		WeekStart:    cfg.WeekStart,
		Location:     loc,
		Events:       events,
	})

	lg, err := logo.Load(cfg.LogoPath)
	if err != nil {
		appLog.Error("logo load failed; rendering without logo", err, "path", cfg.LogoPath)
		lg = nil
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}
	var html bytes.Buffer
	err = renderer.Render(&html, render.Document{
		Pages:         pages,
		Logo:          lg,
		Paper:         cfg.Paper,
		Orientation:   cfg.Orientation,
		WeekdayLabels: layout.WeekdayLabels(cfg.WeekStart),
	})
	if err != nil {
		return err
	}

	out := html.Bytes()
	if !f.html {
		exporter := capture.NewPDFRenderer(capture.Options{
			RemoteURL: cfg.Chrome.RemoteURL,
			NoSandbox: cfg.Chrome.NoSandbox,
			Timeout:   time.Duration(cfg.Chrome.TimeoutSeconds) * time.Second,
		})
		defer exporter.Close()

		out, err = exporter.Render(ctx, capture.PDFRequest{
			HTML:        html.String(),
			Paper:       cfg.Paper,
			Orientation: cfg.Orientation,
		})
		if err != nil {
			return err
		}
	}

	if f.out == "-" {
		_, err = stdout.Write(out)
		return err
	}
	if err := os.WriteFile(f.out, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.out, err)
	}
	appLog.Info("calendar rendered", "out", f.out, "pages", len(pages), "events", len(events), "bytes", len(out))
	return nil
}
