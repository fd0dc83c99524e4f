package script

import (
	"math"

	"go.trai.ch/zerr"
)

// Rolloff maps a distance within a radius to a soft-selection weight in
// [0, 1]. Weights are computed here, on the caller side of the distance
// engine.
type Rolloff int

const (
	RolloffLinear Rolloff = iota
	RolloffSmooth
	RolloffGaussian
	RolloffConstant
)

var rolloffNames = map[string]Rolloff{
	"linear":   RolloffLinear,
	"smooth":   RolloffSmooth,
	"gaussian": RolloffGaussian,
	"constant": RolloffConstant,
}

func (r Rolloff) String() string {
	for name, v := range rolloffNames {
		if v == r {
			return name
		}
	}
	return "unknown"
}

// ParseRolloff looks up a rolloff by name.
func ParseRolloff(name string) (Rolloff, error) {
	r, ok := rolloffNames[name]
	if !ok {
		return 0, zerr.With(zerr.Wrap(ErrUnknownRolloff, name), "rolloff", name)
	}
	return r, nil
}

// Weight returns the weight of a point at distance d for the given radius.
// Points beyond the radius weigh 0.
func (r Rolloff) Weight(d, radius float64) float64 {
	if radius <= 0 || d > radius || d < 0 {
		return 0
	}
	t := d / radius
	switch r {
	case RolloffSmooth:
		return 1 - t*t*(3-2*t)
	case RolloffGaussian:
		// sigma = radius/3
		return math.Exp(-4.5 * t * t)
	case RolloffConstant:
		return 1
	default:
		return 1 - t
	}
}
