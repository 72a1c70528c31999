package codec

import (
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Quality selects the resampling filter and the luminance ramp used for ASCII output.
type Quality int

const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
)

// Profile is the fixed rendering recipe for a quality level.
type Profile struct {
	Quality    Quality
	Filter     imaging.ResampleFilter
	FilterName string
	// Ramp runs from the visually darkest glyph to the brightest one.
	Ramp []rune
}

const (
	rampLow    = " .:-=+*#%@"
	rampMedium = " .:-=+*#%@█"
	rampHigh   = " .'`^\",:;Il!i><~+_-?][}{1)(|\\/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$"
)

var profiles = [...]Profile{
	QualityLow:    {Quality: QualityLow, Filter: imaging.NearestNeighbor, FilterName: "nearest", Ramp: []rune(rampLow)},
	QualityMedium: {Quality: QualityMedium, Filter: imaging.Linear, FilterName: "linear", Ramp: []rune(rampMedium)},
	QualityHigh:   {Quality: QualityHigh, Filter: imaging.Lanczos, FilterName: "lanczos", Ramp: []rune(rampHigh)},
}

// ProfileFor returns the profile of q. Unknown levels fall back to medium.
func ProfileFor(q Quality) Profile {
	if q < QualityLow || q > QualityHigh {
		q = QualityMedium
	}
	p := profiles[q]
	p.Ramp = append([]rune(nil), p.Ramp...)
	return p
}

// Cost is the filter support radius in source pixels; larger means slower and smoother.
func (p Profile) Cost() float64 {
	return p.Filter.Support
}

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	}
	return "unknown"
}

// Next cycles low → medium → high → low.
func (q Quality) Next() Quality {
	if q < QualityLow || q >= QualityHigh {
		return QualityLow
	}
	return q + 1
}

// ParseQuality accepts the level names and their first letters, case-insensitively.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return QualityLow, nil
	case "medium", "med", "m", "":
		return QualityMedium, nil
	case "high", "h":
		return QualityHigh, nil
	}
	return QualityMedium, fmt.Errorf("unknown quality %q", s)
}
