// Package reffile reads extraction parameter files: EXTRACT1D reference
// documents that override pipeline defaults for aperture geometry and
// background regions. Files are JSON by convention; YAML is accepted for
// hand-edited parameter sets.
package reffile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RefType is the reference type tag every parameter file must carry.
const RefType = "EXTRACT1D"

// Dispersion axis values. Horizontal means wavelength runs along image
// columns, vertical along image rows.
const (
	DispAxisHorizontal = 1
	DispAxisVertical   = 2
)

// Range is an inclusive [Start, Stop] pixel interval on the
// cross-dispersion axis.
type Range struct {
	Start int `json:"start" yaml:"start"`
	Stop  int `json:"stop" yaml:"stop"`
}

// Aperture describes how one slit is collapsed to a 1-D spectrum.
type Aperture struct {
	ID         string `json:"id" yaml:"id"`
	RegionType string `json:"region_type,omitempty" yaml:"region_type,omitempty"`
	DispAxis   int    `json:"dispaxis" yaml:"dispaxis"`

	// Inclusive pixel limits of the extraction region. On the dispersion
	// axis they bound the wavelength coverage; on the cross-dispersion
	// axis they bound the source aperture.
	XStart int `json:"xstart" yaml:"xstart"`
	XStop  int `json:"xstop" yaml:"xstop"`
	YStart int `json:"ystart" yaml:"ystart"`
	YStop  int `json:"ystop" yaml:"ystop"`

	// ExtractWidth, when positive, overrides the cross-dispersion span:
	// the aperture keeps the midpoint of its limits and takes this many
	// pixels.
	ExtractWidth int `json:"extract_width,omitempty" yaml:"extract_width,omitempty"`

	// Background lists cross-dispersion ranges whose per-column mean is
	// subtracted from every source pixel. Empty means no subtraction.
	Background []Range `json:"background,omitempty" yaml:"background,omitempty"`

	// UseSourcePosn recenters the aperture on the measured source
	// position. The extract driver forces this off unless asked.
	UseSourcePosn bool `json:"use_source_posn,omitempty" yaml:"use_source_posn,omitempty"`
}

// File is a parsed extraction parameter file.
type File struct {
	RefType   string     `json:"reftype" yaml:"reftype"`
	Apertures []Aperture `json:"apertures" yaml:"apertures"`
}

// ValidationError reports every structural problem found in a parameter
// file at once.
type ValidationError struct {
	Path     string
	Problems []string
}

// Error returns the path followed by each problem.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid parameter file: %s", e.Path, strings.Join(e.Problems, "; "))
}

// ExitCode marks validation failures as exit status 2.
func (e *ValidationError) ExitCode() int { return 2 }

// Load reads, parses, and validates the parameter file at path. Files with
// a .yaml or .yml extension are parsed as YAML, everything else as JSON.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &f)
	default:
		err = json.Unmarshal(raw, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing parameter file %s: %w", path, err)
	}

	if verr := f.validate(path); verr != nil {
		return nil, verr
	}
	return &f, nil
}

// Target returns the first target-region aperture. Apertures without an
// explicit region type count as targets.
func (f *File) Target() (Aperture, bool) {
	for _, ap := range f.Apertures {
		if ap.RegionType == "" || strings.EqualFold(ap.RegionType, "target") {
			return ap, true
		}
	}
	return Aperture{}, false
}

func (f *File) validate(path string) *ValidationError {
	var problems []string

	if !strings.EqualFold(f.RefType, RefType) {
		problems = append(problems, fmt.Sprintf("reftype is %q, want %q", f.RefType, RefType))
	}
	if len(f.Apertures) == 0 {
		problems = append(problems, "no apertures defined")
	}

	for i, ap := range f.Apertures {
		label := ap.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		problems = append(problems, ap.validate(label)...)
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Path: path, Problems: problems}
}

func (ap Aperture) validate(label string) []string {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf("aperture %s: %s", label, fmt.Sprintf(format, args...)))
	}

	if ap.DispAxis != DispAxisHorizontal && ap.DispAxis != DispAxisVertical {
		bad("dispaxis is %d, want 1 or 2", ap.DispAxis)
	}
	if ap.XStart > ap.XStop {
		bad("xstart %d > xstop %d", ap.XStart, ap.XStop)
	}
	if ap.YStart > ap.YStop {
		bad("ystart %d > ystop %d", ap.YStart, ap.YStop)
	}
	if ap.XStart < 0 || ap.YStart < 0 {
		bad("negative pixel limits")
	}
	if ap.ExtractWidth < 0 {
		bad("extract_width %d is negative", ap.ExtractWidth)
	}
	for _, r := range ap.Background {
		if r.Start > r.Stop {
			bad("background range [%d, %d] is inverted", r.Start, r.Stop)
		}
		if r.Start < 0 {
			bad("background range [%d, %d] has negative start", r.Start, r.Stop)
		}
	}
	return problems
}
