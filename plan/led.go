package plan

import "math"

// Led is a single RGB pixel. Components are float64 in [0, 255] so that
// renderers can scale and fade without accumulating rounding errors; the
// platform layer quantizes to bytes when writing to the wire.
type Led struct {
	Red   float64
	Green float64
	Blue  float64
}

// IsEmpty is true if all components are zero.
func (s Led) IsEmpty() bool {
	return s.Red == 0 && s.Green == 0 && s.Blue == 0
}

// Max returns a Led with the per-component maximum of the caller and in.
func (s Led) Max(in Led) Led {
	if s.Red > in.Red {
		in.Red = s.Red
	}
	if s.Green > in.Green {
		in.Green = s.Green
	}
	if s.Blue > in.Blue {
		in.Blue = s.Blue
	}
	return in
}

// Add returns the component-wise sum of the caller and in, clamped at 255.
func (s Led) Add(in Led) Led {
	return Led{
		Red:   math.Min(s.Red+in.Red, 255),
		Green: math.Min(s.Green+in.Green, 255),
		Blue:  math.Min(s.Blue+in.Blue, 255),
	}
}

// FadeBy darkens the Led by amount (0..255), where 255 fades to black.
func (s Led) FadeBy(amount uint8) Led {
	f := float64(255-amount) / 255.0
	return Led{Red: s.Red * f, Green: s.Green * f, Blue: s.Blue * f}
}

// Scale multiplies all components by factor, clamped at 255.
func (s Led) Scale(factor float64) Led {
	return Led{
		Red:   math.Min(s.Red*factor, 255),
		Green: math.Min(s.Green*factor, 255),
		Blue:  math.Min(s.Blue*factor, 255),
	}
}

// White is a fully lit pixel, used for glitter and flash effects.
var White = Led{Red: 255, Green: 255, Blue: 255}

// Fill sets every pixel of buf to color.
func Fill(buf []Led, color Led) {
	for i := range buf {
		buf[i] = color
	}
}

// Clear sets every pixel of buf to black.
func Clear(buf []Led) {
	for i := range buf {
		buf[i] = Led{}
	}
}

// Sin8 is an 8-bit sine wave: one full period over 256 steps, output
// centered at 128 with amplitude 127.5. Sin8(0) == 128.
func Sin8(x uint8) uint8 {
	v := 127.5 + 127.5*math.Sin(2*math.Pi*float64(x)/256.0)
	return uint8(math.Round(math.Min(v, 255)))
}

// HSV converts an 8-bit hue at full saturation and the given value
// (brightness) to an RGB Led. The hue wheel is divided into six regions of
// ~42.67 steps each, matching the usual spectrum conversion.
func HSV(hue uint8, value uint8) Led {
	h := float64(hue) * 6.0 / 256.0
	region := int(h)
	frac := h - float64(region)
	v := float64(value)

	p := 0.0
	q := v * (1 - frac)
	t := v * frac

	switch region {
	case 0:
		return Led{Red: v, Green: t, Blue: p}
	case 1:
		return Led{Red: q, Green: v, Blue: p}
	case 2:
		return Led{Red: p, Green: v, Blue: t}
	case 3:
		return Led{Red: p, Green: q, Blue: v}
	case 4:
		return Led{Red: t, Green: p, Blue: v}
	default:
		return Led{Red: v, Green: p, Blue: q}
	}
}
