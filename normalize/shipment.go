package normalize

import (
	"fmt"

	"github.com/poiesic/tradevec/core"
)

// shipmentNormalizer renders bill of lading shipment events.
// Data providers disagree on field names, so most fields accept an alias.
type shipmentNormalizer struct{}

var _ Normalizer = shipmentNormalizer{}

func (shipmentNormalizer) Kind() core.SourceKind {
	return core.SourceBillOfLading
}

func (shipmentNormalizer) Normalize(r core.RawRecord) (*core.Chunk, error) {
	var (
		date, buyer, supplier, code, desc string
		origin, dest, loading, discharge  string
		err                               error
	)
	for _, f := range []struct {
		dst  *string
		def  string
		keys []string
	}{
		{&date, "Unknown Date", []string{"shipment_date", "date"}},
		{&buyer, "Unknown Buyer", []string{"buyer", "consignee"}},
		{&supplier, "Unknown Supplier", []string{"supplier", "shipper"}},
		{&code, unknown, []string{"hs_code", "hscode"}},
		{&desc, "Unknown Product", []string{"product_description", "description"}},
		{&origin, unknown, []string{"origin_country", "country_of_origin"}},
		{&dest, unknown, []string{"destination_country", "country_of_destination"}},
		{&loading, "Unknown Port", []string{"port_of_loading"}},
		{&discharge, "Unknown Port", []string{"port_of_discharge"}},
	} {
		if *f.dst, err = stringField(r, f.def, f.keys...); err != nil {
			return nil, err
		}
	}

	quantity, quantityText, err := numberField(r, "quantity", "qty")
	if err != nil {
		return nil, err
	}
	weight, weightText, err := numberField(r, "weight_kg", "weight")
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf(
		"New Shipment: On %s, '%s' (in %s) received a shipment of %s (HS Code: %s) from '%s' (in %s). "+
			"The shipment contained %s units weighing %skg, shipped from %s to %s.",
		date, buyer, dest, desc, code, supplier, origin, quantityText, weightText, loading, discharge,
	)

	return &core.Chunk{
		Kind: core.SourceBillOfLading,
		Text: text,
		Metadata: core.Metadata{
			core.MetaSource:       string(core.SourceBillOfLading),
			core.MetaDate:         date,
			core.MetaHSCode:       code,
			"buyer":               buyer,
			"supplier":            supplier,
			"origin_country":      origin,
			"destination_country": dest,
			"quantity":            quantity,
			"weight_kg":           weight,
			"port_of_loading":     loading,
			"port_of_discharge":   discharge,
		},
		Key: []string{date, buyer, supplier, code, desc, loading, discharge, quantityText, weightText},
	}, nil
}
