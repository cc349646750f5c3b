package render

import "image/color"

// Stop is one control point of a piecewise-linear color ramp. Pos is the
// normalized position in [0, 1].
type Stop struct {
	Pos     float64
	R, G, B uint8
}

// IRColorStops is the enhanced-IR ramp used for VISSR brightness
// temperature, ordered cold to warm over the clipped display range.
// Two pairs of stops share a position (20/140 and 80/140): those are hard
// steps, marking the -80 °C overshooting-top and -20 °C cold-cloud
// thresholds with a visible discontinuity.
var IRColorStops = []Stop{
	{0.0 / 140, 0x33, 0x0f, 0x2f},
	{10.0 / 140, 0x9b, 0x1f, 0x94},
	{20.0 / 140, 0xeb, 0x6f, 0xc0},
	{20.0 / 140, 0xe1, 0xe4, 0xe5},
	{30.0 / 140, 0x00, 0x03, 0x00},
	{40.0 / 140, 0xfd, 0x19, 0x17},
	{50.0 / 140, 0xfb, 0xff, 0x2d},
	{60.0 / 140, 0x00, 0xfe, 0x24},
	{70.0 / 140, 0x01, 0x00, 0x71},
	{80.0 / 140, 0x05, 0xfc, 0xfe},
	{80.0 / 140, 0xff, 0xfd, 0xfd},
	{140.0 / 140, 0x00, 0x00, 0x00},
}

// Colormap maps scalar values onto a fixed ramp over [VMin, VMax].
// Values outside the range clip to the endpoints.
type Colormap struct {
	stops []Stop
	vmin  float64
	vmax  float64
}

// NewColormap builds a colormap from ordered stops. Stops must be sorted by
// position with at most two stops sharing a position.
func NewColormap(stops []Stop, vmin, vmax float64) Colormap {
	return Colormap{stops: stops, vmin: vmin, vmax: vmax}
}

// Map converts a value to its ramp color.
func (c Colormap) Map(v float64) color.RGBA {
	t := (v - c.vmin) / (c.vmax - c.vmin)
	if t <= 0 {
		return rgba(c.stops[0])
	}
	if t >= 1 {
		return rgba(c.stops[len(c.stops)-1])
	}

	// Last stop at or below t. At a duplicated position this selects the
	// second stop, which is what makes the step a step: approaching from
	// below interpolates toward the first, landing on it jumps to the second.
	i := 0
	for j := 1; j < len(c.stops); j++ {
		if c.stops[j].Pos <= t {
			i = j
		}
	}
	if i == len(c.stops)-1 {
		return rgba(c.stops[i])
	}

	lo, hi := c.stops[i], c.stops[i+1]
	span := hi.Pos - lo.Pos
	if span <= 0 {
		return rgba(hi)
	}
	f := (t - lo.Pos) / span
	return color.RGBA{
		R: lerp(lo.R, hi.R, f),
		G: lerp(lo.G, hi.G, f),
		B: lerp(lo.B, hi.B, f),
		A: 0xff,
	}
}

func rgba(s Stop) color.RGBA {
	return color.RGBA{R: s.R, G: s.G, B: s.B, A: 0xff}
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
}
