package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
)

var (
	reporters = []string{"Germany", "United States", "Japan", "France", "United Kingdom", "Netherlands"}
	partners  = []string{"China", "Vietnam", "Mexico", "Korea", "India", "Taiwan"}
	buyers    = []string{"TechCorp Germany", "Acme Imports", "Northwind Traders", "Blue Harbor Retail", "Contoso Distribution"}
	suppliers = []string{"Manufacturing Ltd China", "Shenzhen Parts Co", "Hanoi Assembly JSC", "Monterrey Industrial", "Busan Components"}
	routes    = [][2]string{
		{"Shanghai", "Hamburg"},
		{"Yantian", "Long Beach"},
		{"Hai Phong", "Rotterdam"},
		{"Busan", "Los Angeles"},
		{"Manzanillo", "Houston"},
	}
	flows = []string{"Import", "Export"}
)

// sampleGenerator produces plausible raw records for one HS code.
type sampleGenerator struct {
	rng    *rand.Rand
	hsCode string
	now    time.Time
}

func newSampleGenerator(hsCode string, seed uint64, now time.Time) *sampleGenerator {
	return &sampleGenerator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		hsCode: hsCode,
		now:    now,
	}
}

func pick[T any](rng *rand.Rand, values []T) T {
	return values[rng.IntN(len(values))]
}

func (g *sampleGenerator) comtrade(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		qty := 1000 + g.rng.IntN(200000)
		records[i] = map[string]any{
			"period":       g.now.AddDate(0, -(i%12)-1, 0).Format("200601"),
			"reporterDesc": pick(g.rng, reporters),
			"partnerDesc":  pick(g.rng, partners),
			"cmdCode":      g.hsCode,
			"cmdDesc":      "Commodity " + g.hsCode,
			"primaryValue": qty * (50 + g.rng.IntN(450)),
			"qty":          qty,
			"qtyUnitAbbr":  "units",
			"flowDesc":     pick(g.rng, flows),
		}
	}
	return records
}

func (g *sampleGenerator) shipments(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		route := pick(g.rng, routes)
		quantity := 100 + g.rng.IntN(10000)
		records[i] = map[string]any{
			"shipment_date":       g.now.AddDate(0, 0, -(i + 1)).Format("2006-01-02"),
			"buyer":               pick(g.rng, buyers),
			"supplier":            pick(g.rng, suppliers),
			"hs_code":             g.hsCode,
			"product_description": "Goods under HS " + g.hsCode,
			"quantity":            quantity,
			"weight_kg":           float64(quantity) * (0.2 + g.rng.Float64()),
			"origin_country":      pick(g.rng, partners),
			"destination_country": pick(g.rng, reporters),
			"port_of_loading":     route[0],
			"port_of_discharge":   route[1],
		}
	}
	return records
}

// writeSamples writes count pairs of comtrade and bill of lading files into
// dir and returns their paths.
func writeSamples(dir string, g *sampleGenerator, count, records int) ([]string, error) {
	if count < 1 || records < 1 {
		return nil, errors.New("count and records must be positive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	timestamp := g.now.Format("20060102_150405")
	var paths []string
	for i := range count {
		files := []struct {
			prefix  string
			records []map[string]any
		}{
			{"comtrade", g.comtrade(records)},
			{"bl", g.shipments(records)},
		}
		for _, f := range files {
			name := fmt.Sprintf("%s_%s_%s_sample%d.json", f.prefix, g.hsCode, timestamp, i+1)
			data, err := json.MarshalIndent(f.records, "", "  ")
			if err != nil {
				return paths, err
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (r *runner) seedCommand(c *cli.Context) error {
	now := time.Now()
	seed := c.Uint64("seed")
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}

	g := newSampleGenerator(c.String("hs-code"), seed, now)
	paths, err := writeSamples(r.cfg.Paths.RawDir, g, c.Int("count"), c.Int("records"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(c.App.Writer, p)
	}
	return nil
}
