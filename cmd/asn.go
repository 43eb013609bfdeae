package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astroshed/spex/internal/asn"
)

// AsnRequest carries the asn command inputs.
type AsnRequest struct {
	Product    string
	Members    []string
	Background []string
	Rule       string
	AsnType    string
	Out        string
}

// AsnResult reports the association file that was written.
type AsnResult struct {
	File    string `json:"file"`
	Members int    `json:"members"`
}

// AsnBuilder defines the interface for building association documents.
type AsnBuilder interface {
	Build(ctx context.Context, req AsnRequest) (*AsnResult, error)
}

// NewAsnCmd creates the asn command with the given builder.
func NewAsnCmd(builder AsnBuilder) *cobra.Command {
	var req AsnRequest
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:          "asn <product-name> <exposure>...",
		Short:        "Build a level-3 association from a list of exposures",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Product = args[0]
			req.Members = args[1:]

			result, err := builder.Build(cmd.Context(), req)
			if err != nil {
				return err
			}

			if jsonOutput || GetJSON() {
				writeJSON(cmd.OutOrStdout(), result)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d members)\n", result.File, result.Members)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Rule, "rule", asn.DefaultRule, "Association rule name")
	cmd.Flags().StringVar(&req.AsnType, "asn-type", asn.DefaultType, "Association type")
	cmd.Flags().StringVar(&req.Out, "out", "", "Association filename (default derives from the product name)")
	cmd.Flags().StringArrayVar(&req.Background, "background", nil, "Exposure to include as a background member (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}
