package depthmap

import (
	"image/color"
	"math"
)

// turboLUT is the Turbo colour map sampled at 256 levels.
var turboLUT = func() [256]color.RGBA {
	var lut [256]color.RGBA
	for i := range lut {
		lut[i] = turbo(float64(i) / 255)
	}
	return lut
}()

// turbo evaluates the polynomial approximation of the Turbo colour map
// published with it (Mikhailov, 2019).
func turbo(x float64) color.RGBA {
	x = math.Max(0, math.Min(1, x))
	x2 := x * x
	x3 := x2 * x
	x4 := x3 * x
	x5 := x4 * x
	r := 0.13572138 + 4.61539260*x - 42.66032258*x2 + 132.13108234*x3 - 152.94239396*x4 + 59.28637943*x5
	g := 0.09140261 + 2.19418839*x + 4.84296658*x2 - 14.18503333*x3 + 4.27729857*x4 + 2.82956604*x5
	b := 0.10667330 + 12.64194608*x - 60.58204836*x2 + 110.36276771*x3 - 89.90310912*x4 + 27.34824973*x5
	return color.RGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: 255}
}

func toByte(v float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	return uint8(math.Round(v * 255))
}

// Turbo maps an 8-bit level to its Turbo colour.
func Turbo(level uint8) color.RGBA {
	return turboLUT[level]
}
