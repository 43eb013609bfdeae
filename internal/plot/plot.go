// Package plot renders the diagnostic flux-vs-wavelength chart for an
// extracted spectrum as a vector PDF.
package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry in points; 720x432 is a 10x6 inch figure.
const (
	pageW = 720.0
	pageH = 432.0

	marginLeft   = 72.0
	marginRight  = 24.0
	marginTop    = 48.0
	marginBottom = 56.0

	tickLen = 4.0
)

// Config labels the chart. Zero values fall back to the spectral defaults.
type Config struct {
	Title  string
	XLabel string // default "micron"
	YLabel string // default "Jy"
}

// Save renders wavelength against flux and writes the chart to path.
// Non-finite flux samples break the line rather than being interpolated
// over. At least two finite samples are required.
func Save(path string, wavelength, flux []float64, cfg Config) error {
	if len(wavelength) != len(flux) {
		return fmt.Errorf("wavelength has %d samples, flux has %d", len(wavelength), len(flux))
	}
	if cfg.XLabel == "" {
		cfg.XLabel = "micron"
	}
	if cfg.YLabel == "" {
		cfg.YLabel = "Jy"
	}

	xr, yr, err := dataRanges(wavelength, flux)
	if err != nil {
		return err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(cfg.Title, true)
	pdf.AddPage()

	drawFrame(pdf, cfg, xr, yr)
	drawSeries(pdf, wavelength, flux, xr, yr)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing plot: %w", err)
	}
	return nil
}

// axisRange is a padded data interval mapped onto the plot frame.
type axisRange struct {
	lo, hi float64
}

func (r axisRange) span() float64 { return r.hi - r.lo }

// toX maps a data value onto the horizontal frame coordinate.
func (r axisRange) toX(v float64) float64 {
	return marginLeft + (v-r.lo)/r.span()*(pageW-marginLeft-marginRight)
}

// toY maps a data value onto the vertical frame coordinate (PDF y grows
// downward).
func (r axisRange) toY(v float64) float64 {
	return pageH - marginBottom - (v-r.lo)/r.span()*(pageH-marginTop-marginBottom)
}

func dataRanges(wavelength, flux []float64) (axisRange, axisRange, error) {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	finite := 0
	for i := range flux {
		if !isFinite(flux[i]) || !isFinite(wavelength[i]) {
			continue
		}
		finite++
		xmin, xmax = math.Min(xmin, wavelength[i]), math.Max(xmax, wavelength[i])
		ymin, ymax = math.Min(ymin, flux[i]), math.Max(ymax, flux[i])
	}
	if finite < 2 {
		return axisRange{}, axisRange{}, errors.New("need at least two finite samples to plot")
	}

	return pad(xmin, xmax), pad(ymin, ymax), nil
}

// pad widens an interval by 2% on each side so the trace does not sit on
// the frame. Degenerate intervals get a unit of breathing room.
func pad(lo, hi float64) axisRange {
	if lo == hi {
		margin := math.Max(1, math.Abs(lo)*0.05)
		return axisRange{lo: lo - margin, hi: hi + margin}
	}
	margin := (hi - lo) * 0.02
	return axisRange{lo: lo - margin, hi: hi + margin}
}

func drawFrame(pdf *gofpdf.Fpdf, cfg Config, xr, yr axisRange) {
	left, right := marginLeft, pageW-marginRight
	top, bottom := marginTop, pageH-marginBottom

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.8)
	pdf.Line(left, bottom, right, bottom)
	pdf.Line(left, top, left, bottom)
	pdf.Line(left, top, right, top)
	pdf.Line(right, top, right, bottom)

	pdf.SetFont("Helvetica", "", 9)
	for _, v := range ticks(xr.lo, xr.hi) {
		x := xr.toX(v)
		pdf.Line(x, bottom, x, bottom+tickLen)
		label := fmt.Sprintf("%g", v)
		pdf.Text(x-pdf.GetStringWidth(label)/2, bottom+tickLen+10, label)
	}
	for _, v := range ticks(yr.lo, yr.hi) {
		y := yr.toY(v)
		pdf.Line(left-tickLen, y, left, y)
		label := fmt.Sprintf("%g", v)
		pdf.Text(left-tickLen-pdf.GetStringWidth(label)-4, y+3, label)
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.Text((pageW-pdf.GetStringWidth(cfg.XLabel))/2, pageH-14, cfg.XLabel)

	pdf.TransformBegin()
	pdf.TransformRotate(90, 16, pageH/2)
	pdf.Text(16-pdf.GetStringWidth(cfg.YLabel)/2, pageH/2, cfg.YLabel)
	pdf.TransformEnd()

	if cfg.Title != "" {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Text((pageW-pdf.GetStringWidth(cfg.Title))/2, marginTop-16, cfg.Title)
	}
}

func drawSeries(pdf *gofpdf.Fpdf, wavelength, flux []float64, xr, yr axisRange) {
	pdf.SetDrawColor(31, 119, 180)
	pdf.SetLineWidth(1.2)

	havePrev := false
	var prevX, prevY float64
	for i := range flux {
		if !isFinite(flux[i]) || !isFinite(wavelength[i]) {
			havePrev = false
			continue
		}
		x, y := xr.toX(wavelength[i]), yr.toY(flux[i])
		if havePrev {
			pdf.Line(prevX, prevY, x, y)
		}
		prevX, prevY = x, y
		havePrev = true
	}
}

// ticks returns 4 to 8 round-valued tick positions inside [lo, hi].
func ticks(lo, hi float64) []float64 {
	step := niceStep((hi - lo) / 5)
	first := math.Ceil(lo/step) * step
	var out []float64
	for v := first; v <= hi+step/1e6; v += step {
		out = append(out, v)
	}
	return out
}

// niceStep rounds a raw step up to the nearest 1, 2, or 5 times a power of
// ten.
func niceStep(raw float64) float64 {
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch frac := raw / mag; {
	case frac <= 1:
		return mag
	case frac <= 2:
		return 2 * mag
	case frac <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
