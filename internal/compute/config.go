package compute

// Config holds the physics coefficients, defaults and rounding used by Physics.
type Config struct {
	ServerWattsPerPercent  float64 `yaml:"server_watts_per_percent" json:"server_watts_per_percent"`
	CoolingWattsPerPercent float64 `yaml:"cooling_watts_per_percent" json:"cooling_watts_per_percent"`

	// Outlet heat contributions, in °C per percentage point.
	WorkloadHeatPerPercent float64 `yaml:"workload_heat_per_percent" json:"workload_heat_per_percent"`
	ChillerHeatPerPercent  float64 `yaml:"chiller_heat_per_percent" json:"chiller_heat_per_percent"` // applied to (100 - chiller)
	AHUHeatPerPercent      float64 `yaml:"ahu_heat_per_percent" json:"ahu_heat_per_percent"`

	AmbientOffsetC   float64 `yaml:"ambient_offset_c" json:"ambient_offset_c"`
	PricePerKWh      float64 `yaml:"price_per_kwh" json:"price_per_kwh"`
	ChillerThreshold float64 `yaml:"chiller_threshold_percent" json:"chiller_threshold_percent"`

	DefaultWorkloadPercent float64 `yaml:"default_workload_percent" json:"default_workload_percent"`
	DefaultInletTempC      float64 `yaml:"default_inlet_temp_c" json:"default_inlet_temp_c"`
	DefaultChillerPercent  float64 `yaml:"default_chiller_percent" json:"default_chiller_percent"`
	DefaultAHUPercent      float64 `yaml:"default_ahu_percent" json:"default_ahu_percent"`

	TempDecimals int `yaml:"temp_decimals" json:"temp_decimals"` // temperatures and power
	CostDecimals int `yaml:"cost_decimals" json:"cost_decimals"` // cost and PUE
}

// DefaultConfig returns the production coefficients.
func DefaultConfig() Config {
	return Config{
		ServerWattsPerPercent:  14.4,
		CoolingWattsPerPercent: 10.4,
		WorkloadHeatPerPercent: 0.03,
		ChillerHeatPerPercent:  0.03,
		AHUHeatPerPercent:      0.005,
		AmbientOffsetC:         3.0,
		PricePerKWh:            0.10,
		ChillerThreshold:       60,
		DefaultWorkloadPercent: 0,
		DefaultInletTempC:      25,
		DefaultChillerPercent:  50,
		DefaultAHUPercent:      50,
		TempDecimals:           2,
		CostDecimals:           4,
	}
}
