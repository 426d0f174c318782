package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/search"
	"github.com/poiesic/tradevec/storage"
	"github.com/urfave/cli/v2"
)

func (r *runner) searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("a query is required")
	}

	filter, err := storage.ParseFilter(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(search.WithMinScore(float32(c.Float64("min-score"))))
	if err != nil {
		return err
	}

	matches, err := searcher.Search(c.Context, query, c.Int("top-k"), filter)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Found %d hits\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(out, "%d. [%0.3f] %s\n", i+1, m.Score, m.Text)
		fmt.Fprintf(out, "   %s\n", formatMetadata(m.Metadata))
	}
	return nil
}

// formatMetadata renders the standard keys first, then the rest sorted.
func formatMetadata(m core.Metadata) string {
	leading := []string{core.MetaSource, core.MetaDate, core.MetaHSCode, core.MetaFile}
	seen := make(map[string]bool, len(leading))

	var parts []string
	for _, k := range leading {
		seen[k] = true
		if v, ok := m[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}

	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}
