package compute

import (
	"math"

	"github.com/roach88/racksim/internal/record"
)

// Cooling strategy labels.
const (
	StrategyReduceAHU       = "Reduce AHU"
	StrategyIncreaseChiller = "Increase Chiller"
)

// Engine derives operational metrics from rack inputs.
type Engine interface {
	Compute(p Payload) Metrics
}

// Payload is the input to a compute pass. Nil fields take the configured
// defaults.
type Payload struct {
	ServerWorkloadPercent *float64 `json:"server_workload_percent"`
	InletTempC            *float64 `json:"inlet_temp_c"`
	AmbientTempC          *float64 `json:"ambient_temp_c"`
	ChillerUsagePercent   *float64 `json:"chiller_usage_percent"`
	AHUUsagePercent       *float64 `json:"ahu_usage_percent"`
}

// Complete reports whether the fields the compute pass cannot sensibly
// default (workload and inlet temperature) are present.
func (p Payload) Complete() bool {
	return p.ServerWorkloadPercent != nil && p.InletTempC != nil
}

// Fill sets every nil field of p from other.
func (p *Payload) Fill(other Payload) {
	fill := func(dst **float64, src *float64) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
		}
	}
	fill(&p.ServerWorkloadPercent, other.ServerWorkloadPercent)
	fill(&p.InletTempC, other.InletTempC)
	fill(&p.AmbientTempC, other.AmbientTempC)
	fill(&p.ChillerUsagePercent, other.ChillerUsagePercent)
	fill(&p.AHUUsagePercent, other.AHUUsagePercent)
}

// Metrics is the output of a compute pass. PUE is nil when server power is
// not positive.
type Metrics struct {
	OutletTempC           float64  `json:"outlet_temp_c"`
	AmbientTempC          float64  `json:"ambient_temp_c"`
	TotalEnergyCostUSD    float64  `json:"total_energy_cost_usd"` // per hour
	TempDeviationC        float64  `json:"temp_deviation_c"`
	CoolingStrategy       string   `json:"cooling_strategy"`
	ServerPowerWatts      float64  `json:"calculated_server_power_watts"`
	CoolingUnitPowerWatts float64  `json:"cooling_unit_power_watts"`
	PUE                   *float64 `json:"calculated_pue"`
}

// Results maps the metrics onto the record result fields they overwrite.
// Chiller and AHU usage are inputs to the pass and stay unset.
func (m Metrics) Results() record.Results {
	return record.Results{
		OutletTempC:           record.Float(m.OutletTempC),
		TotalEnergyCostUSD:    record.Float(m.TotalEnergyCostUSD),
		TempDeviationC:        record.Float(m.TempDeviationC),
		CoolingStrategy:       record.String(m.CoolingStrategy),
		ServerPowerWatts:      record.Float(m.ServerPowerWatts),
		CoolingUnitPowerWatts: record.Float(m.CoolingUnitPowerWatts),
		PUE:                   m.PUE,
	}
}

// Physics is the production Engine.
type Physics struct {
	cfg Config
}

var _ Engine = (*Physics)(nil)

// New returns a Physics engine using cfg.
func New(cfg Config) *Physics {
	return &Physics{cfg: cfg}
}

// Compute applies the rack physics rules to p.
func (e *Physics) Compute(p Payload) Metrics {
	c := e.cfg
	workload := valueOr(p.ServerWorkloadPercent, c.DefaultWorkloadPercent)
	inlet := valueOr(p.InletTempC, c.DefaultInletTempC)
	chiller := valueOr(p.ChillerUsagePercent, c.DefaultChillerPercent)
	ahu := valueOr(p.AHUUsagePercent, c.DefaultAHUPercent)

	serverW := workload * c.ServerWattsPerPercent
	coolingW := chiller * c.CoolingWattsPerPercent

	outlet := inlet +
		workload*c.WorkloadHeatPerPercent +
		(100-chiller)*c.ChillerHeatPerPercent +
		ahu*c.AHUHeatPerPercent
	ambient := inlet - c.AmbientOffsetC

	totalKW := (serverW + coolingW) / 1000
	costPerHour := totalKW * c.PricePerKWh

	var pue *float64
	if serverW > 0 {
		v := round((serverW+coolingW)/serverW, c.CostDecimals)
		pue = &v
	}

	strategy := StrategyIncreaseChiller
	if chiller > c.ChillerThreshold {
		strategy = StrategyReduceAHU
	}

	return Metrics{
		OutletTempC:           round(outlet, c.TempDecimals),
		AmbientTempC:          round(ambient, c.TempDecimals),
		TotalEnergyCostUSD:    round(costPerHour, c.CostDecimals),
		TempDeviationC:        round(outlet-inlet, c.TempDecimals),
		CoolingStrategy:       strategy,
		ServerPowerWatts:      round(serverW, c.TempDecimals),
		CoolingUnitPowerWatts: round(coolingW, c.TempDecimals),
		PUE:                   pue,
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// round rounds half away from zero to the given number of decimal places.
func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}
