package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Product kinds reported by the info command.
const (
	KindSlitImage = "slit image"
	KindSpectrum  = "extracted spectrum"
)

// InfoResult describes a product on disk.
type InfoResult struct {
	File     string  `json:"file"`
	Kind     string  `json:"kind"`
	Target   string  `json:"target,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Spectra  int     `json:"spectra,omitempty"`
	Rows     int     `json:"rows,omitempty"`
	WaveMin  float64 `json:"wave_min"`
	WaveMax  float64 `json:"wave_max"`
	WaveUnit string  `json:"wave_unit,omitempty"`
	FluxUnit string  `json:"flux_unit,omitempty"`
}

// ProductInspector defines the interface for inspecting products.
type ProductInspector interface {
	Inspect(ctx context.Context, path string) (*InfoResult, error)
}

// NewInfoCmd creates the info command with the given inspector.
func NewInfoCmd(inspector ProductInspector) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:          "info <product>",
		Short:        "Describe a slit image or extracted spectrum product",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := inspector.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput || GetJSON() {
				writeJSON(cmd.OutOrStdout(), result)
				return nil
			}

			formatInfoHuman(cmd, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func formatInfoHuman(cmd *cobra.Command, r *InfoResult) {
	w := cmd.OutOrStdout()

	switch r.Kind {
	case KindSlitImage:
		fmt.Fprintf(w, "%s: %s %dx%d, %g-%g %s\n", r.File, r.Kind, r.Width, r.Height, r.WaveMin, r.WaveMax, r.WaveUnit)
	default:
		fmt.Fprintf(w, "%s: %s, %d spectra, %d rows, %g-%g %s\n", r.File, r.Kind, r.Spectra, r.Rows, r.WaveMin, r.WaveMax, r.WaveUnit)
	}
	if r.Target != "" {
		fmt.Fprintf(w, "Target: %s\n", r.Target)
	}
	if r.FluxUnit != "" {
		fmt.Fprintf(w, "Flux unit: %s\n", r.FluxUnit)
	}
}
