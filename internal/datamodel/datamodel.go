// Package datamodel defines the on-disk spectral products: the resampled
// 2-D slit image that extraction consumes and the multi-spec product it
// emits. Products are JSON documents; the wavelength solution is carried as
// a precomputed vector rather than a WCS.
package datamodel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astroshed/spex/internal/lock"
)

// Meta carries product-level metadata shared by both product kinds.
type Meta struct {
	Filename   string `json:"filename"`
	TargetName string `json:"target_name,omitempty"`
	Instrument string `json:"instrument,omitempty"`
	FluxUnit   string `json:"flux_unit,omitempty"`   // typically "Jy"
	WaveUnit   string `json:"wave_unit,omitempty"`   // typically "um"
}

// Plane is a dense row-major 2-D float array (SCI or ERR).
type Plane struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float64 `json:"values"`
}

// Row returns row y as a slice aliasing the plane's storage.
func (p *Plane) Row(y int) []float64 {
	return p.Values[y*p.Width : (y+1)*p.Width]
}

// BitPlane is a dense row-major 2-D array of data-quality flags.
type BitPlane struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Values []uint32 `json:"values"`
}

// Row returns row y as a slice aliasing the plane's storage.
func (p *BitPlane) Row(y int) []uint32 {
	return p.Values[y*p.Width : (y+1)*p.Width]
}

// SlitModel is a resampled 2-D slit product: science, error, and
// data-quality planes plus the wavelength vector along the dispersion axis.
type SlitModel struct {
	Meta       Meta      `json:"meta"`
	Sci        Plane     `json:"sci"`
	Err        Plane     `json:"err"`
	DQ         BitPlane  `json:"dq"`
	Wavelength []float64 `json:"wavelength"`
}

// SpecTable holds the extracted 1-D spectrum, one entry per dispersion
// element.
type SpecTable struct {
	Wavelength []float64 `json:"WAVELENGTH"`
	Flux       []float64 `json:"FLUX"`
	FluxError  []float64 `json:"FLUX_ERROR"`
	SurfBright []float64 `json:"SURF_BRIGHT"`
	NPixels    []float64 `json:"NPIXELS"`
	DQ         []uint32  `json:"DQ"`
}

// Spec is one extracted slit within a multi-spec product.
type Spec struct {
	Name  string    `json:"name"`
	Table SpecTable `json:"spec_table"`
}

// MultiSpecModel is the product of the extraction step: one spectrum per
// extracted slit plus product metadata.
type MultiSpecModel struct {
	Meta Meta   `json:"meta"`
	Spec []Spec `json:"spec"`
}

// LoadSlit reads and validates a slit product.
func LoadSlit(path string) (*SlitModel, error) {
	var m SlitModel
	if err := loadJSON(path, &m); err != nil {
		return nil, err
	}
	if err := m.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Meta.Filename == "" {
		m.Meta.Filename = filepath.Base(path)
	}
	return &m, nil
}

// LoadMultiSpec reads a multi-spec product.
func LoadMultiSpec(path string) (*MultiSpecModel, error) {
	var m MultiSpecModel
	if err := loadJSON(path, &m); err != nil {
		return nil, err
	}
	if len(m.Spec) == 0 {
		return nil, fmt.Errorf("%s: product has no spectra", path)
	}
	return &m, nil
}

// Save writes the multi-spec product to path under an advisory lock, so two
// runs targeting the same output never interleave writes.
func (m *MultiSpecModel) Save(ctx context.Context, path string) error {
	return lock.Holding(ctx, path, func() error {
		raw, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding product: %w", err)
		}
		if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing product: %w", err)
		}
		return nil
	})
}

func (m *SlitModel) check() error {
	w, h := m.Sci.Width, m.Sci.Height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("sci plane has degenerate shape %dx%d", w, h)
	}
	if len(m.Sci.Values) != w*h {
		return fmt.Errorf("sci plane has %d values, want %d", len(m.Sci.Values), w*h)
	}
	if m.Err.Width != w || m.Err.Height != h || len(m.Err.Values) != w*h {
		return fmt.Errorf("err plane shape does not match sci (%dx%d)", w, h)
	}
	if m.DQ.Width != w || m.DQ.Height != h || len(m.DQ.Values) != w*h {
		return fmt.Errorf("dq plane shape does not match sci (%dx%d)", w, h)
	}
	if len(m.Wavelength) == 0 {
		return fmt.Errorf("missing wavelength vector")
	}
	return nil
}

func loadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading product: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parsing product %s: %w", path, err)
	}
	return nil
}

const (
	slitSuffix   = "_s2d.json"
	resultSuffix = "_extract1dstep.json"
)

// ResultName derives the extraction product filename from the input slit
// filename: the `_s2d` suffix becomes `_extract1dstep`, following the
// step-output naming convention. Inputs without the suffix get
// `_extract1dstep.json` appended to their stem.
func ResultName(s2dfile, outputDir string) string {
	base := filepath.Base(s2dfile)
	switch {
	case strings.HasSuffix(base, slitSuffix):
		base = strings.TrimSuffix(base, slitSuffix) + resultSuffix
	default:
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		base = stem + resultSuffix
	}
	return filepath.Join(outputDir, base)
}

// PlotName derives the diagnostic plot filename from the saved product
// filename by replacing the step suffix with `.pdf`.
func PlotName(resultPath string) string {
	base := filepath.Base(resultPath)
	if strings.HasSuffix(base, resultSuffix) {
		base = strings.TrimSuffix(base, resultSuffix) + ".pdf"
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
	}
	return filepath.Join(filepath.Dir(resultPath), base)
}
