package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/poiesic/tradevec/ingestion"
	"github.com/urfave/cli/v2"
)

func (r *runner) ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := r.openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var opts []ingestion.Option
	if !c.Bool("quiet") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	pipeline, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("watch") {
		err := pipeline.Watch(ctx, c.Duration("debounce"), func(summary *ingestion.RunSummary, err error) {
			if summary != nil {
				printSummary(out, summary)
			}
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	summary, err := pipeline.Run(ctx)
	if summary != nil {
		printSummary(out, summary)
	}
	if err != nil {
		return err
	}
	if summary.Failed() {
		return fmt.Errorf("%d file(s) left pending", len(summary.FilesFailed))
	}
	return nil
}

func printSummary(w io.Writer, s *ingestion.RunSummary) {
	fmt.Fprintf(w, "Files:   %d discovered, %d committed, %d failed\n",
		s.FilesDiscovered, s.FilesCommitted, len(s.FilesFailed))
	fmt.Fprintf(w, "Records: %s normalized, %s dropped\n",
		humanize.Comma(int64(s.RecordsNormalized)), humanize.Comma(int64(s.RecordsDropped)))
	fmt.Fprintf(w, "Vectors: %s upserted\n", humanize.Comma(int64(s.VectorsUpserted)))
	fmt.Fprintf(w, "Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))
	for _, f := range s.FilesFailed {
		fmt.Fprintf(w, "  FAILED %s: %v\n", f.Name, f.Err)
	}
}

