package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/poiesic/tradevec/reembed"
	"github.com/urfave/cli/v2"
)

func (r *runner) reembedCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := r.openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pageSize := c.Int("page-size")
	opts := []reembed.Option{reembed.WithPageSize(pageSize)}
	if !c.Bool("quiet") {
		opts = append(opts, reembed.WithProgress(c.App.ErrWriter, pageSize))
	}
	reembedder, err := db.NewReembedder(opts...)
	if err != nil {
		return err
	}

	summary, err := reembedder.Run(ctx)
	if summary != nil {
		fmt.Fprintf(c.App.Writer, "Re-embedded %s entries in %s\n",
			humanize.Comma(int64(summary.Entries)), summary.Elapsed.Round(time.Millisecond))
	}
	return err
}
