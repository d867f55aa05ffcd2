// Package encode renders scanlines into composite sample words. Every
// function writes a whole line, never allocates and does not branch on pixel
// values, so it is safe to call from the scanline interrupt.
package encode

import (
	"tvout/video/palette"
	"tvout/video/timing"
)

// Encoder renders lines for one profile.
type Encoder struct {
	p    timing.Profile
	tabs palette.Set
	swap int

	burstEven []uint16
	burstOdd  []uint16
}

// New returns an encoder for p. With wordSwap set, each pair of adjacent
// samples is exchanged, matching transmitters that shift out the high half
// of a 32-bit word first. Region boundaries are all even, so only burst and
// pixel samples are affected.
func New(p timing.Profile, wordSwap bool) *Encoder {
	e := &Encoder{p: p, tabs: palette.For(p)}
	if wordSwap {
		e.swap = 1
	}
	e.burstEven, e.burstOdd = bursts(p)
	return e
}

// Profile returns the encoder's profile.
func (e *Encoder) Profile() timing.Profile { return e.p }

var (
	sin4 = [4]float64{0, 1, 0, -1}
	sin3 = [3]float64{0, 0.8660254037844386, -0.8660254037844386}

	// sin(θ - π/4) and sin(θ + π/4) at the four quadrature phases.
	palEven = [4]float64{-0.7071067811865476, 0.7071067811865476, 0.7071067811865476, -0.7071067811865476}
	palOdd  = [4]float64{0.7071067811865476, 0.7071067811865476, -0.7071067811865476, -0.7071067811865476}
)

// bursts builds the colour burst of even and odd rows in logical order.
// NTSC swings half the blanking level on the +sin axis. PAL swings
// blanking/1.5 at ±135° from the B-Y axis, alternating each row.
func bursts(p timing.Profile) (even, odd []uint16) {
	blank := float64(timing.BlankingLevel)
	even = make([]uint16, p.BurstWidth)
	odd = make([]uint16, p.BurstWidth)
	spcc := p.SamplesPerColorClock
	for i := range even {
		k := i % spcc
		switch {
		case p.Standard == timing.PAL:
			even[i] = uint16(blank + float64(blank/1.5*palEven[k]))
			odd[i] = uint16(blank + float64(blank/1.5*palOdd[k]))
		case spcc == 3:
			even[i] = uint16(blank + float64(blank/2*sin3[k]))
			odd[i] = even[i]
		default:
			even[i] = uint16(blank + float64(blank/2*sin4[k]))
			odd[i] = even[i]
		}
	}
	return even, odd
}

func fill(dst []uint16, v uint16) {
	for i := range dst {
		dst[i] = v
	}
}

// Blank writes a horizontal sync followed by blanking and the colour burst.
func (e *Encoder) Blank(dst []uint16, row int) {
	dst = dst[:e.p.LineWidth]
	fill(dst[:e.p.HSync], timing.SyncLevel)
	fill(dst[e.p.HSync:], timing.BlankingLevel)
	e.burst(dst, row)
}

// VSync writes a broad sync pulse and blanking without burst.
func (e *Encoder) VSync(dst []uint16) {
	dst = dst[:e.p.LineWidth]
	fill(dst[:e.p.HSyncLong], timing.SyncLevel)
	fill(dst[e.p.HSyncLong:], timing.BlankingLevel)
}

// HalfLines writes two half-line sync pulses. A long first or second pulse
// is a broad sync, otherwise an equalizing pulse.
func (e *Encoder) HalfLines(dst []uint16, longFirst, longSecond bool) {
	half := e.p.LineWidth / 2
	e.halfLine(dst[:half], longFirst)
	e.halfLine(dst[half:e.p.LineWidth], longSecond)
}

func (e *Encoder) halfLine(dst []uint16, long bool) {
	w := e.p.HSyncShort
	if long {
		w = e.p.HSyncLong
	}
	fill(dst[:w], timing.SyncLevel)
	fill(dst[w:], timing.BlankingLevel)
}

// Active writes sync, burst and the pixels of src for a field row.
func (e *Encoder) Active(dst []uint16, row int, src []uint8) {
	p := &e.p
	dst = dst[:p.LineWidth]
	fill(dst[:p.HSync], timing.SyncLevel)
	fill(dst[p.HSync:p.PixelStart], timing.BlankingLevel)
	end := p.PixelStart + p.PixelSamples()
	fill(dst[end:], timing.BlankingLevel)
	e.burst(dst, row)
	e.Pixels(dst[p.PixelStart:end], row, src)
}

func (e *Encoder) burst(dst []uint16, row int) {
	b := e.burstEven
	if row&1 != 0 {
		b = e.burstOdd
	}
	out := dst[e.p.BurstStart : e.p.BurstStart+len(b)]
	m := e.swap
	for i, v := range b {
		out[i^m] = v
	}
}

// Pixels encodes src into dst, which must hold Width*SamplesPerPixel words
// starting on subcarrier phase 0.
func (e *Encoder) Pixels(dst []uint16, row int, src []uint8) {
	t := e.tabs.ForRow(row)
	src = src[:e.p.Width]
	if e.p.SamplesPerPixel == 2 {
		pixels3(dst, t, src, e.swap)
		return
	}
	pixels4(dst, t, src, e.swap)
}

// pixels4 spreads 4 pixels over 3 colour clocks of 4 samples:
//
//	px0: 0 1 2   px1: 3 0 1   px2: 2 3 0   px3: 1 2 3
func pixels4(dst []uint16, t *palette.Table, src []uint8, m int) {
	o := 0
	for x := 0; x+4 <= len(src); x += 4 {
		s := dst[o : o+12]
		c := t[src[x]]
		s[0^m] = uint16(c>>24) << 8
		s[1^m] = uint16(c>>16&0xff) << 8
		s[2^m] = uint16(c>>8&0xff) << 8
		c = t[src[x+1]]
		s[3^m] = uint16(c&0xff) << 8
		s[4^m] = uint16(c>>24) << 8
		s[5^m] = uint16(c>>16&0xff) << 8
		c = t[src[x+2]]
		s[6^m] = uint16(c>>8&0xff) << 8
		s[7^m] = uint16(c&0xff) << 8
		s[8^m] = uint16(c>>24) << 8
		c = t[src[x+3]]
		s[9^m] = uint16(c>>16&0xff) << 8
		s[10^m] = uint16(c>>8&0xff) << 8
		s[11^m] = uint16(c&0xff) << 8
		o += 12
	}
}

// pixels3 spreads 3 pixels over 2 colour clocks of 3 samples:
//
//	px0: 0 1   px1: 2 0   px2: 1 2
//
// A trailing pixel starts on phase 0 again.
func pixels3(dst []uint16, t *palette.Table, src []uint8, m int) {
	o, x := 0, 0
	for ; x+3 <= len(src); x += 3 {
		s := dst[o : o+6]
		c := t[src[x]]
		s[0^m] = uint16(c>>24) << 8
		s[1^m] = uint16(c>>16&0xff) << 8
		c = t[src[x+1]]
		s[2^m] = uint16(c>>8&0xff) << 8
		s[3^m] = uint16(c>>24) << 8
		c = t[src[x+2]]
		s[4^m] = uint16(c>>16&0xff) << 8
		s[5^m] = uint16(c>>8&0xff) << 8
		o += 6
	}
	for ; x < len(src); x++ {
		s := dst[o : o+2]
		c := t[src[x]]
		s[0^m] = uint16(c>>24) << 8
		s[1^m] = uint16(c>>16&0xff) << 8
		o += 2
	}
}
