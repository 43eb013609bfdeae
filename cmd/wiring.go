package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/astroshed/spex/internal/asn"
	"github.com/astroshed/spex/internal/datamodel"
	"github.com/astroshed/spex/internal/extract"
	"github.com/astroshed/spex/internal/plot"
)

// registerCommands attaches production adapters to the command tree.
func registerCommands(root *cobra.Command) {
	root.AddCommand(NewExtractCmd(&stepAdapter{}))
	root.AddCommand(NewAsnCmd(&asnAdapter{}))
	root.AddCommand(NewInfoCmd(&inspectAdapter{}))
}

// --- stepAdapter ---

// stepAdapter runs the extraction step and, when asked, the plot renderer.
type stepAdapter struct{}

func (stepAdapter) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	// The driver always pins the step-level source position setting, so the
	// parameter file cannot silently re-enable recentering.
	useSourcePosn := req.UseSourcePosn

	step := &extract.Step{
		SaveResults:       true,
		OutputDir:         req.OutputDir,
		OverrideExtract1D: req.ParFile,
		UseSourcePosn:     &useSourcePosn,
	}
	if GetVerbose() {
		step.Logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "spex: "+format+"\n", args...)
		}
	}

	product, saved, err := step.Run(ctx, req.S2DFile)
	if err != nil {
		return nil, err
	}

	table := product.Spec[0].Table
	result := &ExtractResult{
		Product:  saved,
		Rows:     len(table.Wavelength),
		WaveMin:  table.Wavelength[0],
		WaveMax:  table.Wavelength[len(table.Wavelength)-1],
		WaveUnit: product.Meta.WaveUnit,
		FluxUnit: product.Meta.FluxUnit,
	}

	if req.SavePlot {
		plotPath := datamodel.PlotName(saved)
		if err := plot.Save(plotPath, table.Wavelength, table.Flux, plot.Config{
			Title: product.Meta.Filename,
		}); err != nil {
			return nil, &ContextError{Op: "rendering plot", Path: plotPath, Err: err}
		}
		result.Plot = plotPath
	}

	return result, nil
}

// --- asnAdapter ---

type asnAdapter struct{}

func (asnAdapter) Build(ctx context.Context, req AsnRequest) (*AsnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := []asn.Option{}
	if req.Rule != "" {
		opts = append(opts, asn.WithRule(req.Rule))
	}
	if req.AsnType != "" {
		opts = append(opts, asn.WithType(req.AsnType))
	}
	if len(req.Background) > 0 {
		opts = append(opts, asn.WithBackground(req.Background...))
	}

	a, err := asn.FromList(req.Product, req.Members, opts...)
	if err != nil {
		return nil, err
	}

	out := req.Out
	if out == "" {
		out = a.DefaultFilename()
	}
	if err := a.Save(out); err != nil {
		return nil, &ContextError{Op: "writing association", Path: out, Err: err}
	}

	return &AsnResult{File: out, Members: a.MemberCount()}, nil
}

// --- inspectAdapter ---

type inspectAdapter struct{}

func (inspectAdapter) Inspect(ctx context.Context, path string) (*InfoResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if slit, err := datamodel.LoadSlit(path); err == nil {
		return &InfoResult{
			File:     slit.Meta.Filename,
			Kind:     KindSlitImage,
			Target:   slit.Meta.TargetName,
			Width:    slit.Sci.Width,
			Height:   slit.Sci.Height,
			WaveMin:  slit.Wavelength[0],
			WaveMax:  slit.Wavelength[len(slit.Wavelength)-1],
			WaveUnit: slit.Meta.WaveUnit,
			FluxUnit: slit.Meta.FluxUnit,
		}, nil
	}

	spec, err := datamodel.LoadMultiSpec(path)
	if err != nil {
		return nil, fmt.Errorf("%s: not a slit image or extracted spectrum product", path)
	}

	name := spec.Meta.Filename
	if name == "" {
		name = filepath.Base(path)
	}

	table := spec.Spec[0].Table
	result := &InfoResult{
		File:     name,
		Kind:     KindSpectrum,
		Target:   spec.Meta.TargetName,
		Spectra:  len(spec.Spec),
		Rows:     len(table.Wavelength),
		WaveUnit: spec.Meta.WaveUnit,
		FluxUnit: spec.Meta.FluxUnit,
	}
	if len(table.Wavelength) > 0 {
		result.WaveMin = table.Wavelength[0]
		result.WaveMax = table.Wavelength[len(table.Wavelength)-1]
	}
	return result, nil
}
