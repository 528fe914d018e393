package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/newthinker/polydash/internal/app"
	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/config"
	"github.com/newthinker/polydash/internal/export"
	"github.com/newthinker/polydash/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export signal history",
	Long:  `Write the signal history as CSV or the full dashboard bundle as JSON, to a file or the configured archive.`,
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export the current signals window as CSV",
	RunE:  runExportCSV,
}

var exportJSONCmd = &cobra.Command{
	Use:   "json",
	Short: "Export every section as one JSON bundle",
	RunE:  runExportJSON,
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived exports",
	RunE:  runExportList,
}

var (
	exportOut       string
	exportToArchive bool
	exportDirection string
	exportResult    string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportJSONCmd)
	exportCmd.AddCommand(exportListCmd)

	for _, c := range []*cobra.Command{exportCSVCmd, exportJSONCmd} {
		c.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: dated file in export.dir)")
		c.Flags().BoolVar(&exportToArchive, "archive", false, "write to the configured archive instead of a file")
	}
	exportCSVCmd.Flags().StringVar(&exportDirection, "direction", "ALL", "UP, DOWN or ALL")
	exportCSVCmd.Flags().StringVar(&exportResult, "result", "ALL", "WIN, LOSS or ALL")
}

// withArchiver is withSource plus the configured archive.
func withArchiver(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, src client.Source, a *export.Archiver) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Sync()

	c, err := app.NewClient(cfg, log.Named("client"), nil)
	if err != nil {
		return err
	}
	a, err := app.NewArchiver(cfg, c, log, nil)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(cmd)
	defer cancel()

	if err := fn(ctx, cfg, c, a); err != nil {
		log.Debug("export failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	return withArchiver(cmd, func(ctx context.Context, cfg *config.Config, src client.Source, a *export.Archiver) error {
		q := pipeline.Query(pipeline.ParseDirection(exportDirection), pipeline.ParseResult(exportResult), 0)
		q.Limit = cfg.Export.FullSignalsLimit
		p, err := src.Signals(ctx, q)
		if err != nil {
			return err
		}
		rows := pipeline.Sort(p.Data, pipeline.DefaultSort)

		if exportToArchive {
			key, err := a.SaveCSV(ctx, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d signals to %s\n", len(rows), key)
			return nil
		}

		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, rows); err != nil {
			return err
		}
		path, err := writeExport(cfg, export.SignalsPrefix, "csv", buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d signals to %s\n", len(rows), path)
		return nil
	})
}

func runExportJSON(cmd *cobra.Command, args []string) error {
	return withArchiver(cmd, func(ctx context.Context, cfg *config.Config, src client.Source, a *export.Archiver) error {
		if exportToArchive {
			key, b, err := a.SaveFull(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived bundle with %d signals to %s\n", len(b.Signals), key)
			return nil
		}

		b, err := export.Full(ctx, src, cfg.Export.FullSignalsLimit, time.Now())
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := export.WriteJSON(&buf, b); err != nil {
			return err
		}
		path, err := writeExport(cfg, export.FullPrefix, "json", buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote bundle with %d signals to %s\n", len(b.Signals), path)
		return nil
	})
}

func runExportList(cmd *cobra.Command, args []string) error {
	return withArchiver(cmd, func(ctx context.Context, _ *config.Config, _ client.Source, a *export.Archiver) error {
		objects, err := a.List(ctx)
		if err != nil {
			return err
		}
		if len(objects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No archived exports.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
		for _, o := range objects {
			fmt.Fprintf(w, "%s\t%d\t%s\n", o.Key, o.Size, o.ModTime.UTC().Format(time.DateTime))
		}
		return w.Flush()
	})
}

// writeExport writes data to --out, or to a dated file under export.dir.
func writeExport(cfg *config.Config, prefix, ext string, data []byte) (string, error) {
	path := exportOut
	if path == "" {
		path = filepath.Join(cfg.Export.Dir, export.FileName(prefix, ext, time.Now()))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating export dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}
