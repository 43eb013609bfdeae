package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astroshed/spex/internal/datamodel"
	"github.com/astroshed/spex/internal/extract"
)

const slitFixture = `{
  "meta": {"target_name": "WASP-62", "instrument": "MIRI", "flux_unit": "Jy", "wave_unit": "um"},
  "sci": {"width": 4, "height": 5, "values": [
    1, 1, 1, 1,
    1, 1, 1, 1,
    9, 9, 9, 9,
    1, 1, 1, 1,
    1, 1, 1, 1
  ]},
  "err": {"width": 4, "height": 5, "values": [
    0, 0, 0, 0,
    0, 0, 0, 0,
    0.5, 0.5, 0.5, 0.5,
    0, 0, 0, 0,
    0, 0, 0, 0
  ]},
  "dq": {"width": 4, "height": 5, "values": [
    0, 0, 0, 0,
    0, 0, 0, 0,
    0, 0, 0, 0,
    0, 0, 0, 0,
    0, 0, 0, 0
  ]},
  "wavelength": [5.0, 7.0, 9.0, 11.0]
}`

const parFixture = `{
  "reftype": "EXTRACT1D",
  "apertures": [
    {
      "id": "lrs_slit",
      "region_type": "target",
      "dispaxis": 1,
      "xstart": 0,
      "xstop": 3,
      "ystart": 2,
      "ystop": 2,
      "background": [{"start": 0, "stop": 1}, {"start": 3, "stop": 4}]
    }
  ]
}`

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestStep_Run_SavesProduct(t *testing.T) {
	dir := t.TempDir()
	s2d := writeFixture(t, dir, "jw01033_lrs_s2d.json", slitFixture)
	par := writeFixture(t, dir, "miri_lrs_demo_extract1d.json", parFixture)

	var logged []string
	step := &extract.Step{
		SaveResults:       true,
		OutputDir:         dir,
		OverrideExtract1D: par,
		Logf:              func(format string, args ...any) { logged = append(logged, format) },
	}

	product, saved, err := step.Run(context.Background(), s2d)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantPath := filepath.Join(dir, "jw01033_lrs_extract1dstep.json")
	if saved != wantPath {
		t.Errorf("saved path = %q, want %q", saved, wantPath)
	}
	if _, statErr := os.Stat(saved); statErr != nil {
		t.Fatalf("saved product missing: %v", statErr)
	}

	if product.Meta.Filename != "jw01033_lrs_extract1dstep.json" {
		t.Errorf("Meta.Filename = %q", product.Meta.Filename)
	}
	if product.Meta.TargetName != "WASP-62" {
		t.Errorf("Meta.TargetName = %q, want WASP-62", product.Meta.TargetName)
	}
	if len(product.Spec) != 1 || product.Spec[0].Name != "lrs_slit" {
		t.Fatalf("Spec = %+v, want one slit named lrs_slit", product.Spec)
	}

	table := product.Spec[0].Table
	// Source row holds 9, background rows hold 1, one source pixel per column.
	for i, flux := range table.Flux {
		if flux != 8 {
			t.Errorf("Flux[%d] = %g, want 8", i, flux)
		}
	}
	if table.Wavelength[3] != 11 {
		t.Errorf("Wavelength[3] = %g, want 11", table.Wavelength[3])
	}

	if len(logged) == 0 {
		t.Error("expected verbose log lines")
	}

	// The saved product round-trips through the datamodel loader.
	reloaded, err := datamodel.LoadMultiSpec(saved)
	if err != nil {
		t.Fatalf("reloading product: %v", err)
	}
	if reloaded.Spec[0].Table.Flux[0] != 8 {
		t.Errorf("reloaded Flux[0] = %g, want 8", reloaded.Spec[0].Table.Flux[0])
	}
}

func TestStep_Run_WithoutSaveResults(t *testing.T) {
	dir := t.TempDir()
	s2d := writeFixture(t, dir, "obs_s2d.json", slitFixture)
	par := writeFixture(t, dir, "pars.json", parFixture)

	step := &extract.Step{OverrideExtract1D: par}
	product, saved, err := step.Run(context.Background(), s2d)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if saved != "" {
		t.Errorf("saved path = %q, want empty when SaveResults is off", saved)
	}
	if product == nil || len(product.Spec) != 1 {
		t.Fatalf("product = %+v", product)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "obs_extract1dstep.json")); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("product was written despite SaveResults being off")
	}
}

func TestStep_Run_RequiresParameterFile(t *testing.T) {
	step := &extract.Step{}
	_, _, err := step.Run(context.Background(), "whatever_s2d.json")
	if err == nil || !strings.Contains(err.Error(), "parameter file") {
		t.Errorf("error = %v, want missing parameter file", err)
	}
}

func TestStep_Run_SourcePosnOverride(t *testing.T) {
	// The parameter file asks for recentering onto the bright row; the
	// driver forces it off, so the misplaced aperture stays put.
	dir := t.TempDir()
	s2d := writeFixture(t, dir, "obs_s2d.json", slitFixture)
	par := writeFixture(t, dir, "pars.json", `{
  "reftype": "EXTRACT1D",
  "apertures": [
    {"id": "a", "dispaxis": 1, "xstart": 0, "xstop": 3, "ystart": 0, "ystop": 0, "use_source_posn": true}
  ]
}`)

	off := false
	step := &extract.Step{OverrideExtract1D: par, UseSourcePosn: &off}
	product, _, err := step.Run(context.Background(), s2d)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := product.Spec[0].Table.Flux[0]; got != 1 {
		t.Errorf("Flux[0] = %g, want 1 (aperture must not recenter)", got)
	}

	// Left to the parameter file, the aperture walks onto the source row.
	step = &extract.Step{OverrideExtract1D: par}
	product, _, err = step.Run(context.Background(), s2d)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := product.Spec[0].Table.Flux[0]; got != 9 {
		t.Errorf("Flux[0] = %g, want 9 (aperture should recenter)", got)
	}
}

func TestStep_Run_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	s2d := writeFixture(t, dir, "obs_s2d.json", slitFixture)
	par := writeFixture(t, dir, "pars.json", parFixture)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	step := &extract.Step{OverrideExtract1D: par}
	if _, _, err := step.Run(ctx, s2d); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestStep_Run_NoTargetAperture(t *testing.T) {
	dir := t.TempDir()
	s2d := writeFixture(t, dir, "obs_s2d.json", slitFixture)
	par := writeFixture(t, dir, "pars.json", `{
  "reftype": "EXTRACT1D",
  "apertures": [{"id": "b", "region_type": "background", "dispaxis": 1, "xstop": 3, "ystop": 4}]
}`)

	step := &extract.Step{OverrideExtract1D: par}
	_, _, err := step.Run(context.Background(), s2d)
	if !errors.Is(err, extract.ErrNoTargetAperture) {
		t.Errorf("error = %v, want ErrNoTargetAperture", err)
	}
}
