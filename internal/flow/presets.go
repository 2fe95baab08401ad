package flow

import "sort"

// Preset is a saved set of flow-alert query parameters.
type Preset struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params"`
}

var presets = map[string]Preset{
	"clean_ask_side_opening_flow": {
		Description: "Ask-side opening transactions within 5-minute interval",
		Params: map[string]string{
			"interval":                        "5m",
			"equity_type":                     "stocks",
			"option_type":                     "both",
			"volume_oi_ratio_min":             "1.05",
			"ask_percent_min":                 "0.7",
			"percent_multi_max":               "0.3",
			"premium_min":                     "100000",
			"exclude_in_the_money":            "true",
			"interval_volume_greater_than_oi": "true",
			"total_volume_greater_than_oi":    "true",
		},
	},
	"general_flow_feed": {
		Description: "Smaller to mid-sized orders with opening bias",
		Params: map[string]string{
			"side":                     "bid,ask",
			"equity_type":              "stocks,adrs",
			"premium_min":              "750",
			"premium_max":              "25000",
			"size_min":                 "5",
			"volume_oi_ratio_min":      "2",
			"out_of_money_percent_min": "0.05",
			"volume_greater_than_oi":   "true",
			"size_greater_than_oi":     "true",
			"opening_trades":           "true",
			"exclude_deep_itm":         "true",
			"hide_expired":             "true",
		},
	},
	"otm_call_buyers_500k": {
		Description: "Single name $500K+ OTM call buyers for swing ideas",
		Params: map[string]string{
			"option_type":    "calls",
			"side":           "ask",
			"opening_trades": "true",
			"equity_type":    "stocks,adrs",
			"premium_min":    "500000",
			"dte_min":        "6",
			"dte_max":        "183",
		},
	},
	"single_leg_high_volume": {
		Description: "Single leg, OTM options with significant volume",
		Params: map[string]string{
			"contract_type":          "option",
			"issue_type":             "common_stock",
			"volume_oi_ratio_min":    "2",
			"premium_min":            "2000",
			"spread_max":             "0",
			"volume_greater_than_oi": "true",
			"is_out_of_money":        "true",
		},
	},
	"most_successful_combined_strategy": {
		Description: "High-probability OTM call alert using top trader settings",
		Params: map[string]string{
			"option_type":         "calls",
			"side":                "ask",
			"is_out_of_money":     "true",
			"premium_min":         "500000",
			"volume_oi_ratio_min": "2",
			"equity_type":         "stocks,adrs",
			"opening_trades":      "true",
			"dte_min":             "1",
			"dte_max":             "28",
			"rule_name[]":         "RepeatedHits",
		},
	},
}

// LookupPreset returns a copy of the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, false
	}
	params := make(map[string]string, len(p.Params))
	for k, v := range p.Params {
		params[k] = v
	}
	return Preset{Name: name, Description: p.Description, Params: params}, true
}

// Presets returns every preset ordered by name.
func Presets() []Preset {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Preset, 0, len(names))
	for _, name := range names {
		p, _ := LookupPreset(name)
		out = append(out, p)
	}
	return out
}
