package music

import "math"

// GainExponent shapes raw volume into perceived loudness.
const GainExponent = 2.5

// Gain maps a raw volume in [0,1] to an output gain.
// Low volumes come out much quieter than a linear mapping would produce.
func Gain(volume float64) float64 {
	if math.IsNaN(volume) || volume <= 0 {
		return 0
	}
	if volume >= 1 {
		return 1
	}
	return math.Pow(volume, GainExponent)
}
