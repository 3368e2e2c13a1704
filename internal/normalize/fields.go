package normalize

import "github.com/roach88/racksim/internal/record"

// Section keys, in resolution order.
var (
	metaSections    = []string{"meta_data", "metadata"}
	payloadSections = []string{"payload"}
	resultSections  = []string{"results"}
)

type valueKind int

const (
	kindText valueKind = iota
	kindNumber
)

// fieldRule resolves one canonical field.
type fieldRule struct {
	Column   string
	Sections []string
	Aliases  []string
	Kind     valueKind
	Fallback string // text fields only; "" leaves the field unset

	setPlain  func(*record.Record) *string
	setText   func(*record.Record) **string
	setNumber func(*record.Record) **float64
}

// fields lists every canonical column except the raw document, in storage order.
var fields = []fieldRule{
	{
		Column: "entity_type", Sections: metaSections,
		Aliases: []string{"entityType", "entity_type"}, Kind: kindText, Fallback: record.Unknown,
		setPlain: func(r *record.Record) *string { return &r.EntityType },
	},
	{
		Column: "entity_id", Sections: metaSections,
		Aliases: []string{"entityId", "entity_id"}, Kind: kindText, Fallback: record.Unknown,
		setPlain: func(r *record.Record) *string { return &r.EntityID },
	},
	{
		Column: "timestamp_utc", Sections: metaSections,
		Aliases: []string{"timestamp", "timestamp_utc"}, Kind: kindText,
		setText: func(r *record.Record) **string { return &r.Timestamp },
	},

	number("server_workload_percent", payloadSections, func(r *record.Record) **float64 { return &r.Inputs.ServerWorkloadPercent }),
	number("inlet_temp_c", payloadSections, func(r *record.Record) **float64 { return &r.Inputs.InletTempC }),
	number("ambient_temp_c", payloadSections, func(r *record.Record) **float64 { return &r.Inputs.AmbientTempC }),

	number("chiller_usage_percent", resultSections, func(r *record.Record) **float64 { return &r.Results.ChillerUsagePercent }),
	number("ahu_usage_percent", resultSections, func(r *record.Record) **float64 { return &r.Results.AHUUsagePercent }),
	number("outlet_temp_c", resultSections, func(r *record.Record) **float64 { return &r.Results.OutletTempC }),
	number("total_energy_cost_usd", resultSections, func(r *record.Record) **float64 { return &r.Results.TotalEnergyCostUSD }),
	number("temp_deviation_c", resultSections, func(r *record.Record) **float64 { return &r.Results.TempDeviationC }),
	{
		Column: "cooling_strategy", Sections: resultSections,
		Aliases: []string{"cooling_strategy"}, Kind: kindText,
		setText: func(r *record.Record) **string { return &r.Results.CoolingStrategy },
	},
	number("calculated_server_power_watts", resultSections, func(r *record.Record) **float64 { return &r.Results.ServerPowerWatts }),
	number("cooling_unit_power_watts", resultSections, func(r *record.Record) **float64 { return &r.Results.CoolingUnitPowerWatts }),
	number("calculated_pue", resultSections, func(r *record.Record) **float64 { return &r.Results.PUE }),
}

// Lookups that feed the selector rather than a canonical column.
var (
	originalEntityRule = fieldRule{
		Column: "original_entity_id", Sections: metaSections,
		Aliases: []string{"originalEntityId", "original_entity_id", "entityId", "entity_id"},
		Kind:    kindText,
	}

	payloadRules = []fieldRule{
		{Column: "server_workload_percent", Sections: payloadSections, Aliases: []string{"server_workload_percent"}, Kind: kindNumber},
		{Column: "inlet_temp_c", Sections: payloadSections, Aliases: []string{"inlet_temp_c"}, Kind: kindNumber},
		{Column: "ambient_temp_c", Sections: payloadSections, Aliases: []string{"ambient_temp_c"}, Kind: kindNumber},
		{Column: "chiller_usage_percent", Sections: payloadSections, Aliases: []string{"chiller_usage_percent"}, Kind: kindNumber},
		{Column: "ahu_usage_percent", Sections: payloadSections, Aliases: []string{"ahu_usage_percent"}, Kind: kindNumber},
	}
)

func number(column string, sections []string, set func(*record.Record) **float64) fieldRule {
	return fieldRule{
		Column:    column,
		Sections:  sections,
		Aliases:   []string{column},
		Kind:      kindNumber,
		setNumber: set,
	}
}
