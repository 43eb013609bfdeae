package extract

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/astroshed/spex/internal/datamodel"
	"github.com/astroshed/spex/internal/reffile"
)

// extractAperture collapses one aperture into a spec table. Work is always
// done in dispersion-horizontal orientation; vertical-dispersion slits are
// transposed first so the per-column loops become contiguous row block ops.
func extractAperture(slit *datamodel.SlitModel, ap reffile.Aperture, useSourcePosn bool) (datamodel.SpecTable, error) {
	sci, errp, dq := slit.Sci, slit.Err, slit.DQ
	if ap.DispAxis == reffile.DispAxisVertical {
		sci = transpose(sci)
		errp = transpose(errp)
		dq = transposeBits(dq)
		ap.XStart, ap.XStop, ap.YStart, ap.YStop = ap.YStart, ap.YStop, ap.XStart, ap.XStop
	}
	width, height := sci.Width, sci.Height

	if len(slit.Wavelength) != width {
		return datamodel.SpecTable{}, fmt.Errorf(
			"wavelength vector has %d elements, dispersion extent is %d", len(slit.Wavelength), width)
	}

	x0, x1 := clamp(ap.XStart, 0, width-1), clamp(ap.XStop, 0, width-1)
	if ap.XStop < 0 || ap.XStart > width-1 {
		return datamodel.SpecTable{}, fmt.Errorf("dispersion limits [%d, %d] lie outside the image", ap.XStart, ap.XStop)
	}

	lo, hi := sourceRows(ap)
	if hi < 0 || lo > height-1 {
		return datamodel.SpecTable{}, fmt.Errorf("aperture rows [%d, %d] lie outside the image", lo, hi)
	}
	y0, y1 := clamp(lo, 0, height-1), clamp(hi, 0, height-1)

	if useSourcePosn {
		y0, y1 = recenter(sci, x0, x1, y0, y1)
	}

	ncols := x1 - x0 + 1
	flux := make([]float64, ncols)
	variance := make([]float64, ncols)
	scratch := make([]float64, ncols)

	for y := y0; y <= y1; y++ {
		vecmath.AddBlockInPlace(flux, sci.Row(y)[x0 : x1+1])
		row := errp.Row(y)[x0 : x1+1]
		vecmath.MulBlock(scratch, row, row)
		vecmath.AddBlockInPlace(variance, scratch)
	}
	npix := float64(y1 - y0 + 1)

	if rows := backgroundRows(ap, height, y0, y1); len(rows) > 0 {
		mean := make([]float64, ncols)
		for _, y := range rows {
			vecmath.AddBlockInPlace(mean, sci.Row(y)[x0 : x1+1])
		}
		vecmath.ScaleBlockInPlace(mean, 1/float64(len(rows)))
		// Subtract the per-column background estimate from every source pixel.
		vecmath.ScaleBlockInPlace(mean, -npix)
		vecmath.AddBlockInPlace(flux, mean)
	}

	table := datamodel.SpecTable{
		Wavelength: append([]float64(nil), slit.Wavelength[x0 : x1+1]...),
		Flux:       flux,
		FluxError:  make([]float64, ncols),
		SurfBright: make([]float64, ncols),
		NPixels:    make([]float64, ncols),
		DQ:         make([]uint32, ncols),
	}
	for i := range table.FluxError {
		table.FluxError[i] = math.Sqrt(variance[i])
		table.NPixels[i] = npix
	}
	vecmath.ScaleBlock(table.SurfBright, flux, 1/npix)

	for y := y0; y <= y1; y++ {
		row := dq.Row(y)
		for i := range table.DQ {
			table.DQ[i] |= row[x0+i]
		}
	}

	return table, nil
}

// sourceRows resolves the cross-dispersion aperture rows, applying the
// extract_width override centered on the limit midpoint. The result is not
// clamped; callers decide whether a partly off-image aperture is an error.
func sourceRows(ap reffile.Aperture) (int, int) {
	y0, y1 := ap.YStart, ap.YStop
	if ap.ExtractWidth > 0 {
		mid := float64(y0+y1) / 2
		y0 = int(math.Round(mid - float64(ap.ExtractWidth-1)/2))
		y1 = y0 + ap.ExtractWidth - 1
	}
	return y0, y1
}

// recenter shifts the aperture so it is centered on the flux-weighted
// cross-dispersion centroid of the column sums, keeping its width. Rows
// with non-positive total flux carry no weight; if nothing carries weight
// the aperture is left where it was.
func recenter(sci datamodel.Plane, x0, x1, y0, y1 int) (int, int) {
	var total, weighted float64
	for y := 0; y < sci.Height; y++ {
		w := vecmath.Sum(sci.Row(y)[x0 : x1+1])
		if w <= 0 {
			continue
		}
		total += w
		weighted += w * float64(y)
	}
	if total <= 0 {
		return y0, y1
	}

	nrows := y1 - y0 + 1
	lo := int(math.Round(weighted/total - float64(nrows-1)/2))
	lo = clamp(lo, 0, sci.Height-nrows)
	return lo, lo + nrows - 1
}

// backgroundRows expands the background ranges into row indices, clamped to
// the image and excluding rows inside the source aperture.
func backgroundRows(ap reffile.Aperture, height, srcLo, srcHi int) []int {
	var rows []int
	for _, r := range ap.Background {
		lo, hi := clamp(r.Start, 0, height-1), clamp(r.Stop, 0, height-1)
		if r.Stop < 0 || r.Start > height-1 {
			continue
		}
		for y := lo; y <= hi; y++ {
			if y >= srcLo && y <= srcHi {
				continue
			}
			rows = append(rows, y)
		}
	}
	return rows
}

func transpose(p datamodel.Plane) datamodel.Plane {
	out := datamodel.Plane{Width: p.Height, Height: p.Width, Values: make([]float64, len(p.Values))}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			out.Values[x*out.Width+y] = p.Values[y*p.Width+x]
		}
	}
	return out
}

func transposeBits(p datamodel.BitPlane) datamodel.BitPlane {
	out := datamodel.BitPlane{Width: p.Height, Height: p.Width, Values: make([]uint32, len(p.Values))}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			out.Values[x*out.Width+y] = p.Values[y*p.Width+x]
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
