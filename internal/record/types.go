package record

import (
	"encoding/json"
	"fmt"
)

// Unknown is the fallback group type and group id for documents that do not
// name one.
const Unknown = "unknown"

// Record is one canonical telemetry observation.
type Record struct {
	ID         int64           `json:"id,omitempty"` // 0 until stored
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Timestamp  *string         `json:"timestamp_utc"`
	Inputs     Inputs          `json:"payload"`
	Results    Results         `json:"results"`
	Raw        json.RawMessage `json:"raw_json,omitempty"`
	CreatedAt  string          `json:"created_at,omitempty"`
}

// Inputs are the sensor readings a producer reported for a rack.
type Inputs struct {
	ServerWorkloadPercent *float64 `json:"server_workload_percent"`
	InletTempC            *float64 `json:"inlet_temp_c"`
	AmbientTempC          *float64 `json:"ambient_temp_c"`
}

// Results are the derived operational metrics for a rack. Producers may
// supply them; a selection run overwrites the computed subset.
type Results struct {
	ChillerUsagePercent   *float64 `json:"chiller_usage_percent"`
	AHUUsagePercent       *float64 `json:"ahu_usage_percent"`
	OutletTempC           *float64 `json:"outlet_temp_c"`
	TotalEnergyCostUSD    *float64 `json:"total_energy_cost_usd"` // per hour
	TempDeviationC        *float64 `json:"temp_deviation_c"`
	CoolingStrategy       *string  `json:"cooling_strategy"`
	ServerPowerWatts      *float64 `json:"calculated_server_power_watts"`
	CoolingUnitPowerWatts *float64 `json:"cooling_unit_power_watts"`
	PUE                   *float64 `json:"calculated_pue"`
}

// Selection records that a stored Record was chosen by a selection run.
type Selection struct {
	ID               int64  `json:"id,omitempty"`
	RecordID         int64  `json:"selected_row_id"`
	DisplayName      string `json:"selected_entity_id"`
	OriginalEntityID string `json:"original_entity_id"`
	GroupID          string `json:"rack_id"`
	SelectedAt       string `json:"selection_ts"`
	Seed             *int64 `json:"seed"`
	RunID            string `json:"run_id"`
}

// DisplayName is the human-facing name of a stored record.
func DisplayName(id int64) string {
	return fmt.Sprintf("row-%d", id)
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Int returns a pointer to v.
func Int(v int64) *int64 {
	return &v
}

// Map returns the results as a map keyed by their wire names. Unset fields
// map to nil.
func (r Results) Map() map[string]any {
	return map[string]any{
		"chiller_usage_percent":         r.ChillerUsagePercent,
		"ahu_usage_percent":             r.AHUUsagePercent,
		"outlet_temp_c":                 r.OutletTempC,
		"total_energy_cost_usd":         r.TotalEnergyCostUSD,
		"temp_deviation_c":              r.TempDeviationC,
		"cooling_strategy":              r.CoolingStrategy,
		"calculated_server_power_watts": r.ServerPowerWatts,
		"cooling_unit_power_watts":      r.CoolingUnitPowerWatts,
		"calculated_pue":                r.PUE,
	}
}

// Map returns the inputs as a map keyed by their wire names.
func (in Inputs) Map() map[string]any {
	return map[string]any{
		"server_workload_percent": in.ServerWorkloadPercent,
		"inlet_temp_c":            in.InletTempC,
		"ambient_temp_c":          in.AmbientTempC,
	}
}

// Document re-expresses the record in the input document shape accepted by
// the normalizer, using the preferred section and field names. Unset fields
// are written as JSON null.
func (r Record) Document() (json.RawMessage, error) {
	meta := map[string]any{
		"entityType": r.EntityType,
		"entityId":   r.EntityID,
		"timestamp":  r.Timestamp,
	}
	doc := map[string]any{
		"meta_data": meta,
		"payload":   r.Inputs.Map(),
		"results":   r.Results.Map(),
	}
	data, err := MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}
	return data, nil
}

// TimeLayout is the UTC timestamp format used for stored times, matching
// SQLite's strftime('%Y-%m-%dT%H:%M:%fZ').
const TimeLayout = "2006-01-02T15:04:05.000Z"
