package codec

import (
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

const ansiReset = "\x1b[0m"

// RenderHalfBlock draws frame into cols×rows terminal cells using the upper half block
// glyph with a 24-bit foreground (top pixel) and background (bottom pixel), packing two
// pixel rows per terminal row. Rows are separated by '\n' and each row ends with a reset.
func RenderHalfBlock(frame Frame, cols, rows int, p Profile) string {
	if cols <= 0 || rows <= 0 || !frame.Valid() {
		return ""
	}
	img := imaging.Resize(frame.Image(), cols, rows*2, p.Filter)

	var sb strings.Builder
	sb.Grow(cols * rows * 40)
	var lastFg, lastBg [3]byte
	for row := 0; row < rows; row++ {
		top := img.Pix[(row*2)*img.Stride:]
		bot := img.Pix[(row*2+1)*img.Stride:]
		for col := 0; col < cols; col++ {
			fg := [3]byte{top[col*4], top[col*4+1], top[col*4+2]}
			bg := [3]byte{bot[col*4], bot[col*4+1], bot[col*4+2]}
			if col == 0 || fg != lastFg {
				writeColor(&sb, "\x1b[38;2;", fg)
				lastFg = fg
			}
			if col == 0 || bg != lastBg {
				writeColor(&sb, "\x1b[48;2;", bg)
				lastBg = bg
			}
			sb.WriteString("▀")
		}
		sb.WriteString(ansiReset)
		if row < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func writeColor(sb *strings.Builder, prefix string, c [3]byte) {
	sb.WriteString(prefix)
	sb.WriteString(strconv.Itoa(int(c[0])))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c[1])))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c[2])))
	sb.WriteByte('m')
}
