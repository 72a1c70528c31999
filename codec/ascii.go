package codec

import (
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// Perceptual gamma applied to linear luminance before ramp lookup. Without it
// mid-grey pixels collapse toward the dark end of the ramp.
const lumaGamma = 0.45

// Grid is a character raster indexed as grid[row][col].
type Grid [][]rune

// Rows returns the number of rows.
func (g Grid) Rows() int { return len(g) }

// Cols returns the width of the first row.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Lines renders every row as a string.
func (g Grid) Lines() []string {
	out := make([]string, len(g))
	for i, row := range g {
		out[i] = string(row)
	}
	return out
}

func (g Grid) String() string {
	return strings.Join(g.Lines(), "\n")
}

// Convert resamples frame to exactly cols×rows cells with the profile filter and maps
// each sample's luminance onto the profile ramp. A zero target dimension yields an
// empty grid.
func Convert(frame Frame, cols, rows int, p Profile) Grid {
	if cols <= 0 || rows <= 0 || !frame.Valid() || len(p.Ramp) == 0 {
		return Grid{}
	}
	resized := imaging.Resize(frame.Image(), cols, rows, p.Filter)

	grid := make(Grid, rows)
	cells := make([]rune, cols*rows)
	for y := 0; y < rows; y++ {
		row := cells[y*cols : (y+1)*cols]
		pix := resized.Pix[y*resized.Stride : y*resized.Stride+cols*4]
		for x := 0; x < cols; x++ {
			row[x] = p.Ramp[RampIndex(pix[x*4], pix[x*4+1], pix[x*4+2], len(p.Ramp))]
		}
		grid[y] = row
	}
	return grid
}

// Luminance returns 0.3·R + 0.59·G + 0.11·B normalised to [0,1]. Integer weights keep
// pure white at exactly 1.
func Luminance(r, g, b uint8) float64 {
	return float64(30*int(r)+59*int(g)+11*int(b)) / (100 * 255)
}

// RampIndex maps an RGB sample onto a ramp of rampLen glyphs after gamma correction.
func RampIndex(r, g, b uint8, rampLen int) int {
	if rampLen <= 1 {
		return 0
	}
	corrected := math.Pow(Luminance(r, g, b), lumaGamma)
	idx := int(math.Floor(corrected * float64(rampLen-1)))
	if idx < 0 {
		return 0
	}
	if idx > rampLen-1 {
		return rampLen - 1
	}
	return idx
}
