package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnmarshalJSON decodes a product without letting one bad variation reject
// the whole document. Variations that are not objects are skipped, mistyped
// variation fields are left at their zero value, and every dropped part is
// recorded in DecodeIssues.
func (p *Product) UnmarshalJSON(data []byte) error {
	if !isSet(data) {
		return nil
	}

	type plain Product
	var raw struct {
		plain
		VariationLabels json.RawMessage `json:"variationLabels"`
		VariationValues json.RawMessage `json:"variationValues"`
		Variations      json.RawMessage `json:"variations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Product(raw.plain)

	if isSet(raw.VariationLabels) && !decodeField(raw.VariationLabels, &p.VariationLabels) {
		p.decodeIssues = append(p.decodeIssues, "variationLabels")
	}
	if isSet(raw.VariationValues) && !decodeField(raw.VariationValues, &p.VariationValues) {
		p.decodeIssues = append(p.decodeIssues, "variationValues")
	}
	if !isSet(raw.Variations) {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw.Variations, &elems); err != nil {
		p.decodeIssues = append(p.decodeIssues, "variations")
		return nil
	}
	p.Variations = make([]Variation, 0, len(elems))
	for i, elem := range elems {
		var v Variation
		issues, err := v.decode(elem)
		if err != nil {
			p.decodeIssues = append(p.decodeIssues, fmt.Sprintf("variations[%d]", i))
			continue
		}
		for _, field := range issues {
			p.decodeIssues = append(p.decodeIssues, fmt.Sprintf("variations[%d].%s", i, field))
		}
		p.Variations = append(p.Variations, v)
	}
	return nil
}

// DecodeIssues lists the parts of the source document that were dropped
// while decoding, such as "variations[2].pricing.online". It is empty for
// products built in code or decoded from a well-formed document.
func (p *Product) DecodeIssues() []string {
	return p.decodeIssues
}

// UnmarshalJSON decodes a variation field by field. Only a document that is
// not an object is an error.
func (v *Variation) UnmarshalJSON(data []byte) error {
	if !isSet(data) {
		return nil
	}
	_, err := v.decode(data)
	return err
}

func (v *Variation) decode(data []byte) ([]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("variation is null")
	}

	*v = Variation{}
	var issues []string
	text := func(name string, dst *string) {
		if raw, ok := fields[name]; ok && isSet(raw) && !decodeText(raw, dst) {
			issues = append(issues, name)
		}
	}

	text("id", &v.ID)
	text("name", &v.Name)
	text("size", &v.Size)
	text("variationType", &v.VariationType)

	if raw, ok := fields["itemsPerPack"]; ok {
		// Quantity never fails
		_ = json.Unmarshal(raw, &v.ItemsPerPack)
	}
	if raw, ok := fields["colour"]; ok && isSet(raw) {
		if !decodeColour(raw, &v.Colour) {
			issues = append(issues, "colour")
		}
	}
	if raw, ok := fields["netContent"]; ok && isSet(raw) {
		if !decodeField(raw, &v.NetContent) {
			issues = append(issues, "netContent")
		}
	}
	if raw, ok := fields["pricing"]; ok && isSet(raw) {
		issues = append(issues, decodeChannels(raw, "pricing", &v.Pricing)...)
	}
	if raw, ok := fields["availability"]; ok && isSet(raw) {
		issues = append(issues, decodeChannels(raw, "availability", &v.Availability)...)
	}
	if raw, ok := fields["images"]; ok && isSet(raw) {
		if !decodeField(raw, &v.Images) {
			issues = append(issues, "images")
		}
	}
	return issues, nil
}

// UnmarshalJSON accepts the value as a number or a numeric string. Anything
// else leaves the value unset.
func (n *NetContent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value json.RawMessage `json:"value"`
		Unit  json.RawMessage `json:"unit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = NetContent{}
	if isSet(raw.Value) {
		var s string
		if decodeText(raw.Value, &s) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				n.Value = &f
			}
		}
	}
	if isSet(raw.Unit) {
		decodeText(raw.Unit, &n.Unit)
	}
	return nil
}

// decodeColour accepts the object form and the "name:code" shorthand
func decodeColour(raw json.RawMessage, dst **Colour) bool {
	var c Colour
	if decodeField(raw, &c) {
		*dst = &c
		return true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	name, code, ok := strings.Cut(s, ":")
	if !ok {
		return false
	}
	*dst = &Colour{Name: name, Code: code}
	return true
}

// decodeChannels decodes a per-channel map entry by entry, dropping the
// channels that do not decode
func decodeChannels[T any](raw json.RawMessage, name string, dst *map[string]T) []string {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []string{name}
	}

	var issues []string
	out := make(map[string]T, len(entries))
	for channel, entry := range entries {
		var value T
		if !decodeField(entry, &value) {
			issues = append(issues, name+"."+channel)
			continue
		}
		out[channel] = value
	}
	*dst = out
	return issues
}

// decodeField decodes raw into dst only when the whole value decodes
func decodeField[T any](raw json.RawMessage, dst *T) bool {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	*dst = value
	return true
}

// decodeText accepts strings and renders numbers the way the catalog writes them
func decodeText(raw json.RawMessage, dst *string) bool {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	switch t := value.(type) {
	case string:
		*dst = t
	case float64:
		*dst = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return false
	}
	return true
}

func isSet(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && string(raw) != "null"
}
