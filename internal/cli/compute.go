package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/racksim/internal/compute"
)

// ComputeOptions holds flags for the compute command.
type ComputeOptions struct {
	*RootOptions
	Workload float64
	Inlet    float64
	Ambient  float64
	Chiller  float64
	AHU      float64
}

// ComputeResult is the JSON output of the compute command.
type ComputeResult struct {
	Payload compute.Payload `json:"payload"`
	Metrics compute.Metrics `json:"metrics"`
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Run the compute pass on ad-hoc inputs",
		Long: `Compute rack metrics for the given inputs without touching the database.
Omitted inputs take the configured defaults.

Example:
  racksim compute --workload 50 --inlet 22 --chiller 60 --ahu 50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Workload, "workload", 0, "server workload percent")
	cmd.Flags().Float64Var(&opts.Inlet, "inlet", 0, "inlet temperature °C")
	cmd.Flags().Float64Var(&opts.Ambient, "ambient", 0, "ambient temperature °C")
	cmd.Flags().Float64Var(&opts.Chiller, "chiller", 0, "chiller usage percent")
	cmd.Flags().Float64Var(&opts.AHU, "ahu", 0, "AHU usage percent")

	return cmd
}

func runCompute(opts *ComputeOptions, cmd *cobra.Command) error {
	e, err := loadEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	flag := func(name string, v float64) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}
	payload := compute.Payload{
		ServerWorkloadPercent: flag("workload", opts.Workload),
		InletTempC:            flag("inlet", opts.Inlet),
		AmbientTempC:          flag("ambient", opts.Ambient),
		ChillerUsagePercent:   flag("chiller", opts.Chiller),
		AHUUsagePercent:       flag("ahu", opts.AHU),
	}

	m := compute.New(e.cfg.Compute).Compute(payload)
	e.logger.Debug("computed", "strategy", m.CoolingStrategy)

	if e.formatter.IsJSON() {
		return e.formatter.Success(ComputeResult{Payload: payload, Metrics: m})
	}
	writeMetrics(e.formatter.Writer, m)
	return nil
}

func writeMetrics(w io.Writer, m compute.Metrics) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%-24s %s\n", label+":", value)
	}
	row("Outlet temperature", formatFloat(m.OutletTempC)+" °C")
	row("Ambient temperature", formatFloat(m.AmbientTempC)+" °C")
	row("Temperature deviation", formatFloat(m.TempDeviationC)+" °C")
	row("Server power", formatFloat(m.ServerPowerWatts)+" W")
	row("Cooling unit power", formatFloat(m.CoolingUnitPowerWatts)+" W")
	row("PUE", formatOptFloat(m.PUE))
	row("Energy cost", "$"+formatFloat(m.TotalEnergyCostUSD)+"/h")
	row("Cooling strategy", m.CoolingStrategy)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return formatFloat(*f)
}

func formatOptString(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}
