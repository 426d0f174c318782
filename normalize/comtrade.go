// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package normalize

import (
	"fmt"
	"strings"

	"github.com/poiesic/tradevec/core"
)

// comtradeNormalizer renders statistical aggregate records.
type comtradeNormalizer struct{}

var _ Normalizer = comtradeNormalizer{}

func (comtradeNormalizer) Kind() core.SourceKind {
	return core.SourceComtrade
}

func (comtradeNormalizer) Normalize(r core.RawRecord) (*core.Chunk, error) {
	var (
		period, reporter, partner, code, desc, unit, flow string
		err                                               error
	)
	for _, f := range []struct {
		dst *string
		def string
		key string
	}{
		{&period, "", "period"},
		{&reporter, "Unknown Country", "reporterDesc"},
		{&partner, "World", "partnerDesc"},
		{&code, unknown, "cmdCode"},
		{&desc, "Unknown Product", "cmdDesc"},
		{&unit, "units", "qtyUnitAbbr"},
		{&flow, "Import", "flowDesc"},
	} {
		if *f.dst, err = stringField(r, f.def, f.key); err != nil {
			return nil, err
		}
	}

	value, _, err := numberField(r, "primaryValue")
	if err != nil {
		return nil, err
	}
	qty, _, err := numberField(r, "qty")
	if err != nil {
		return nil, err
	}

	year, month := splitPeriod(period)
	if period == "" {
		period = unknown
	}

	text := fmt.Sprintf(
		"Trade Statistics Update: In %s/%s, %s's %ss of %s (HS Code: %s) from %s totaled %s. The quantity was %s %s.",
		month, year, reporter, strings.ToLower(flow), desc, code, partner, formatUSD(value), formatCount(qty), unit,
	)

	return &core.Chunk{
		Kind: core.SourceComtrade,
		Text: text,
		Metadata: core.Metadata{
			core.MetaSource:    string(core.SourceComtrade),
			core.MetaDate:      year + "-" + month + "-01",
			core.MetaHSCode:    code,
			"reporter_country": reporter,
			"partner_country":  partner,
			"trade_value_usd":  value,
			"quantity":         qty,
			"flow":             flow,
			"period":           period,
		},
		Key: []string{period, reporter, partner, code, flow},
	}, nil
}
