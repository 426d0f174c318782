package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

func (r *runner) statsCommand(c *cli.Context) error {
	db, err := r.openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	store := db.Store()
	count, err := store.Count(c.Context)
	if err != nil {
		return err
	}
	collection, err := store.Collection()
	if err != nil {
		return err
	}
	pending, err := db.Ledger().Pending()
	if err != nil {
		return err
	}
	committed, err := db.Ledger().Committed()
	if err != nil {
		return err
	}
	commits, err := store.List(c.Context)
	if err != nil {
		return err
	}

	out := c.App.Writer
	cfg := db.Config()
	fmt.Fprintf(out, "Collection: %s (%s, dimension %d, %s backend)\n",
		collection.Name, collection.Metric, collection.Dimension, cfg.Store.Backend)
	fmt.Fprintf(out, "Vectors:    %s\n", humanize.Comma(int64(count)))
	fmt.Fprintf(out, "Raw files:  %d pending in %s\n", len(pending), cfg.Paths.RawDir)
	fmt.Fprintf(out, "Processed:  %d files in %s\n", len(committed), cfg.Paths.ProcessedDir)

	if len(commits) == 0 {
		fmt.Fprintln(out, "No files committed yet")
		return nil
	}

	records, dropped := 0, 0
	for _, fc := range commits {
		records += fc.Records
		dropped += fc.Dropped
	}
	fmt.Fprintf(out, "Journal:    %d commits, %s records, %s dropped\n",
		len(commits), humanize.Comma(int64(records)), humanize.Comma(int64(dropped)))

	recent := commits
	if n := c.Int("recent"); n >= 0 && len(recent) > n {
		recent = recent[len(recent)-n:]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		fc := recent[i]
		fmt.Fprintf(out, "  %s  %-16s %6s vectors  %s\n",
			fc.CommittedAt.Local().Format("2006-01-02 15:04:05"), fc.Kind,
			humanize.Comma(int64(fc.Vectors)), fc.Name)
	}
	return nil
}
