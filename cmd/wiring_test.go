package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astroshed/spex/internal/datamodel"
)

const wiringSlit = `{
  "meta": {"target_name": "AU Mic", "flux_unit": "Jy", "wave_unit": "um"},
  "sci": {"width": 3, "height": 3, "values": [1, 1, 1, 7, 8, 9, 1, 1, 1]},
  "err": {"width": 3, "height": 3, "values": [0, 0, 0, 0.1, 0.1, 0.1, 0, 0, 0]},
  "dq":  {"width": 3, "height": 3, "values": [0, 0, 0, 0, 0, 0, 0, 0, 0]},
  "wavelength": [5.0, 6.0, 7.0]
}`

const wiringPars = `{
  "reftype": "EXTRACT1D",
  "apertures": [
    {"id": "slit", "region_type": "target", "dispaxis": 1,
     "xstart": 0, "xstop": 2, "ystart": 1, "ystop": 1,
     "background": [{"start": 0, "stop": 0}, {"start": 2, "stop": 2}]}
  ]
}`

func writeWiringFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestExtract_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	s2d := writeWiringFixture(t, dir, "aumic_lrs_s2d.json", wiringSlit)
	par := writeWiringFixture(t, dir, "pars_extract1d.json", wiringPars)

	root := NewRootCmd()
	registerCommands(root)
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	code := RunCLI(root, []string{
		"extract",
		"--s2dfile", s2d,
		"--parfile", par,
		"--output-dir", dir,
		"--save-plot",
	}, stdout, stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}

	productPath := filepath.Join(dir, "aumic_lrs_extract1dstep.json")
	product, err := datamodel.LoadMultiSpec(productPath)
	if err != nil {
		t.Fatalf("loading saved product: %v", err)
	}
	// Source row holds 7,8,9 over unit background, one source pixel per column.
	want := []float64{6, 7, 8}
	for i, v := range want {
		if got := product.Spec[0].Table.Flux[i]; got != v {
			t.Errorf("Flux[%d] = %g, want %g", i, got, v)
		}
	}

	plotPath := filepath.Join(dir, "aumic_lrs.pdf")
	if fi, statErr := os.Stat(plotPath); statErr != nil || fi.Size() == 0 {
		t.Errorf("diagnostic plot missing or empty: %v", statErr)
	}

	if !strings.Contains(stdout.String(), "Saved "+productPath) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestExtract_EndToEnd_InvalidParfileExitsTwo(t *testing.T) {
	dir := t.TempDir()
	s2d := writeWiringFixture(t, dir, "obs_s2d.json", wiringSlit)
	par := writeWiringFixture(t, dir, "bad_extract1d.json", `{"reftype": "EXTRACT1D", "apertures": []}`)

	root := NewRootCmd()
	registerCommands(root)
	stderr := new(bytes.Buffer)

	code := RunCLI(root, []string{
		"extract", "--s2dfile", s2d, "--parfile", par, "--output-dir", dir,
	}, new(bytes.Buffer), stderr)

	if code != 2 {
		t.Errorf("exit code = %d, want 2 for parameter validation failure", code)
	}
	if !strings.Contains(stderr.String(), "spex: ") {
		t.Errorf("stderr = %q, want spex-prefixed error", stderr.String())
	}
}

func TestAsn_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "aumic_asn.json")

	root := NewRootCmd()
	registerCommands(root)
	stdout := new(bytes.Buffer)

	code := RunCLI(root, []string{
		"asn", "AU Mic Obs 4",
		"one_cal.json", "two_cal.json",
		"--background", "bkg_cal.json",
		"--out", out,
	}, stdout, new(bytes.Buffer))

	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		t.Fatalf("association missing or empty: %v", err)
	}
	if !strings.Contains(stdout.String(), "(3 members)") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestInfo_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	s2d := writeWiringFixture(t, dir, "aumic_lrs_s2d.json", wiringSlit)

	root := NewRootCmd()
	registerCommands(root)
	stdout := new(bytes.Buffer)

	code := RunCLI(root, []string{"info", s2d}, stdout, new(bytes.Buffer))

	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	out := stdout.String()
	if !strings.Contains(out, "slit image 3x3, 5-7 um") {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(out, "Target: AU Mic") {
		t.Errorf("stdout = %q", out)
	}
}

func TestInfo_EndToEnd_Unrecognized(t *testing.T) {
	dir := t.TempDir()
	junk := writeWiringFixture(t, dir, "junk.json", `{"hello": 1}`)

	root := NewRootCmd()
	registerCommands(root)
	stderr := new(bytes.Buffer)

	code := RunCLI(root, []string{"info", junk}, new(bytes.Buffer), stderr)

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "not a slit image or extracted spectrum") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
