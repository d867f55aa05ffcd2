// Package palette builds the composite lookup tables for the 8-bit RGB332
// frame buffer. Each entry packs the DAC code of every subcarrier phase of a
// colour: phase k lives in bits 24-8k, so a 4-phase entry uses all four bytes
// and a 3-phase entry leaves byte 0 zero.
//
// The subcarrier is sampled at phases θk = 2πk/n relative to line sample 0.
// The burst sits on +sin, which puts the B-Y axis on -sin:
//
//	s(θ) = Y - U sinθ ∓ V cosθ
//
// where the V sign is negative for NTSC and even PAL rows and positive for
// odd PAL rows.
package palette

import (
	"image/color"
	"math"
	"sync"

	"tvout/video/timing"
)

// Table maps a palette index to its packed phase codes.
type Table [256]uint32

// Phase returns the DAC code of idx at subcarrier phase k.
func (t *Table) Phase(idx uint8, k int) uint8 {
	return uint8(t[idx] >> Shift(k))
}

// Shift is the bit offset of phase k within an entry.
func Shift(k int) uint {
	return uint(24 - 8*k)
}

// chromaGain scales the U/V vector against the luma swing so that fully
// saturated colours stay inside the DAC range.
const chromaGain = 0.5

const sqrt3over2 = 0.8660254037844386

var (
	sin4 = [4]float64{0, 1, 0, -1}
	cos4 = [4]float64{1, 0, -1, 0}
	sin3 = [3]float64{0, sqrt3over2, -sqrt3over2}
	cos3 = [3]float64{1, -0.5, -0.5}
)

var (
	fourPhase    = sync.OnceValue(func() *Table { return build(sin4[:], cos4[:], -1) })
	fourPhaseAlt = sync.OnceValue(func() *Table { return build(sin4[:], cos4[:], 1) })
	threePhase   = sync.OnceValue(func() *Table { return build(sin3[:], cos3[:], -1) })
)

// Set is the pair of tables used by one profile. Even and Odd refer to the
// field row parity; they are the same table for NTSC.
type Set struct {
	Even *Table
	Odd  *Table
}

// ForRow returns the table for a field row.
func (s Set) ForRow(row int) *Table {
	if row&1 != 0 {
		return s.Odd
	}
	return s.Even
}

// For returns the tables of profile p. Tables are built on first use and
// shared afterwards.
func For(p timing.Profile) Set {
	switch {
	case p.Standard == timing.PAL:
		return Set{Even: fourPhase(), Odd: fourPhaseAlt()}
	case p.SamplesPerColorClock == 3:
		t := threePhase()
		return Set{Even: t, Odd: t}
	default:
		t := fourPhase()
		return Set{Even: t, Odd: t}
	}
}

func build(sin, cos []float64, vSign float64) *Table {
	black := float64(timing.Code(timing.BlackLevel))
	span := float64(timing.Code(timing.WhiteLevel)) - black

	var t Table
	for i := range t {
		y, u, v := YUV(uint8(i))
		var e uint32
		for k := range sin {
			c := float64(-u*sin[k]) + float64(vSign*v*cos[k])
			e |= uint32(level(black, span, y, c)) << Shift(k)
		}
		t[i] = e
	}
	return &t
}

func level(black, span, y, c float64) uint8 {
	x := math.Floor(black + float64(span*float64(y+float64(chromaGain*c))) + 0.5)
	switch {
	case x < 0:
		return 0
	case x > 255:
		return 255
	}
	return uint8(x)
}

// YUV returns the luma and colour difference components of idx, each
// channel scaled to [0, 1] before weighting.
func YUV(idx uint8) (y, u, v float64) {
	r := float64(idx>>5) / 7
	g := float64((idx>>2)&7) / 7
	b := float64(idx&3) / 3
	y = float64(.299*r) + float64(.587*g) + float64(.114*b)
	return y, .492 * (b - y), .877 * (r - y)
}

// Index returns the RGB332 index nearest to c.
func Index(c color.RGBA) uint8 {
	r := (uint16(c.R)*7 + 127) / 255
	g := (uint16(c.G)*7 + 127) / 255
	b := (uint16(c.B)*3 + 127) / 255
	return uint8(r<<5 | g<<2 | b)
}

// RGBA expands an RGB332 index to a full colour.
func RGBA(idx uint8) color.RGBA {
	return color.RGBA{
		R: uint8(uint16(idx>>5) * 255 / 7),
		G: uint8(uint16((idx>>2)&7) * 255 / 7),
		B: uint8(uint16(idx&3) * 255 / 3),
		A: 0xff,
	}
}

// Common indices.
const (
	Black   uint8 = 0x00
	White   uint8 = 0xff
	Red     uint8 = 0xe0
	Green   uint8 = 0x1c
	Blue    uint8 = 0x03
	Yellow  uint8 = 0xfc
	Cyan    uint8 = 0x1f
	Magenta uint8 = 0xe3
	Gray    uint8 = 0x92
)
