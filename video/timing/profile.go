// Package timing derives the per-standard scanline geometry used by the
// signal generator. A Profile is computed once at startup and never mutated.
package timing

import (
	"errors"
	"fmt"
)

// Standard selects the television system.
type Standard uint8

const (
	NTSC Standard = iota + 1
	PAL
)

func (s Standard) String() string {
	switch s {
	case NTSC:
		return "NTSC"
	case PAL:
		return "PAL"
	default:
		return "unknown"
	}
}

// ParseStandard accepts "NTSC" or "PAL" in upper or lower case.
func ParseStandard(s string) (Standard, error) {
	switch s {
	case "NTSC", "ntsc":
		return NTSC, nil
	case "PAL", "pal":
		return PAL, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

var ErrUnsupported = errors.New("timing: unsupported mode")

const (
	ntscSubcarrierHz = 315000000.0 / 88
	palSubcarrierHz  = 4433618.75

	// Whole colour clocks per line. NTSC is really 227.5 and PAL 283.75;
	// rounding up keeps the subcarrier phase identical on every line.
	ntscColorClocksPerLine = 228
	palColorClocksPerLine  = 284

	ntscLines = 262
	palLines  = 312

	// ActiveLines is the number of frame buffer rows shown per field.
	ActiveLines = 240

	// Width is the number of palette indices per frame buffer row.
	Width = 256

	// PAL field rows.
	palActiveTop  = 32
	palVSyncStart = 304

	// NTSC rows after the active region.
	ntscPostBlankRows = 5
	ntscVSyncRows     = 3

	// palPixelOffset shifts the PAL picture right so that 192 of 288 colour
	// clocks carry pixels, which is roughly the correct aspect ratio.
	palPixelOffset = 88

	burstCycles = 10
)

// Profile is the immutable scanline geometry for one mode. All widths and
// offsets are in samples.
type Profile struct {
	Standard             Standard
	SamplesPerColorClock int

	SubcarrierHz float64
	SampleRateHz float64

	LineWidth   int
	TotalLines  int
	ActiveLines int
	Width       int

	// ActiveTop is the first row carrying frame buffer content.
	ActiveTop int

	// VSyncStart/VSyncEnd bound the vertical sync rows, end exclusive.
	VSyncStart int
	VSyncEnd   int

	HSync      int
	HSyncLong  int
	HSyncShort int

	BurstStart int
	BurstWidth int

	ActiveStart int
	PixelStart  int

	// SamplesPerPixel and PixelsPerGroup describe the pixel to colour clock
	// ratio: a group of PixelsPerGroup pixels spans a whole number of colour
	// clocks.
	SamplesPerPixel int
	PixelsPerGroup  int
}

// New derives the profile for standard at samplesPerColorClock samples per
// subcarrier cycle. NTSC supports 3 or 4, PAL only 4.
func New(std Standard, samplesPerColorClock int) (Profile, error) {
	switch std {
	case NTSC:
		if samplesPerColorClock != 3 && samplesPerColorClock != 4 {
			return Profile{}, fmt.Errorf("%w: NTSC at %d samples per colour clock", ErrUnsupported, samplesPerColorClock)
		}
		return ntsc(samplesPerColorClock), nil
	case PAL:
		if samplesPerColorClock != 4 {
			return Profile{}, fmt.Errorf("%w: PAL at %d samples per colour clock", ErrUnsupported, samplesPerColorClock)
		}
		return pal(), nil
	}
	return Profile{}, fmt.Errorf("%w: standard %d", ErrUnsupported, std)
}

func ntsc(spcc int) Profile {
	p := Profile{
		Standard:             NTSC,
		SamplesPerColorClock: spcc,
		SubcarrierHz:         ntscSubcarrierHz,
		SampleRateHz:         ntscSubcarrierHz * float64(spcc),
		LineWidth:            ntscColorClocksPerLine * spcc,
		TotalLines:           ntscLines,
		ActiveLines:          ActiveLines,
		Width:                Width,
	}
	p.HSyncLong = p.usec(63.555 - 4.7)
	p.HSync = p.usec(4.7)
	if spcc == 4 {
		p.ActiveStart = p.usec(10)
		p.SamplesPerPixel = 3
		p.PixelsPerGroup = 4
	} else {
		p.ActiveStart = p.usec(10.5)
		p.SamplesPerPixel = 2
		p.PixelsPerGroup = 3
	}
	p.PixelStart = p.ActiveStart
	p.BurstStart = p.HSync
	p.BurstWidth = burstCycles * spcc
	p.ActiveTop = 0
	p.VSyncStart = ActiveLines + ntscPostBlankRows
	p.VSyncEnd = p.VSyncStart + ntscVSyncRows
	return p
}

func pal() Profile {
	const spcc = 4
	p := Profile{
		Standard:             PAL,
		SamplesPerColorClock: spcc,
		SubcarrierHz:         palSubcarrierHz,
		SampleRateHz:         palSubcarrierHz * spcc,
		LineWidth:            palColorClocksPerLine * spcc,
		TotalLines:           palLines,
		ActiveLines:          ActiveLines,
		Width:                Width,
		SamplesPerPixel:      3,
		PixelsPerGroup:       4,
	}
	p.HSyncShort = p.usec(2)
	p.HSyncLong = p.usec(30)
	p.HSync = p.usec(4.7)
	p.BurstStart = p.usec(5.6)
	p.BurstWidth = (burstCycles*spcc + 4) &^ 1
	p.ActiveStart = p.usec(10.4)
	p.PixelStart = p.ActiveStart + palPixelOffset
	p.ActiveTop = palActiveTop
	p.VSyncStart = palVSyncStart
	p.VSyncEnd = palLines
	return p
}

// usec converts a duration in microseconds into samples, rounded to a
// multiple of two colour clocks so that every region starts word aligned and
// in subcarrier phase.
func (p Profile) usec(us float64) int {
	r := int(us * p.SampleRateHz / 1e6)
	step := p.SamplesPerColorClock << 1
	return ((r + p.SamplesPerColorClock) / step) * step
}

// PixelSamples is the number of samples covered by one row of pixels.
func (p Profile) PixelSamples() int {
	return p.Width * p.SamplesPerPixel
}

// LineBytes is the size of one sample buffer in bytes.
func (p Profile) LineBytes() int {
	return p.LineWidth * 2
}

// LinePeriodSeconds is the duration of one scanline.
func (p Profile) LinePeriodSeconds() float64 {
	return float64(p.LineWidth) / p.SampleRateHz
}

// FieldRateHz is the number of fields per second.
func (p Profile) FieldRateHz() float64 {
	return p.SampleRateHz / float64(p.LineWidth*p.TotalLines)
}

// SourceRow maps a field row to a frame buffer row, or -1 outside the
// active region.
func (p Profile) SourceRow(row int) int {
	r := row - p.ActiveTop
	if r < 0 || r >= p.ActiveLines {
		return -1
	}
	return r
}

func (p Profile) String() string {
	return fmt.Sprintf("%s %dx (%.6f MHz, %d samples x %d lines)",
		p.Standard, p.SamplesPerColorClock, p.SampleRateHz/1e6, p.LineWidth, p.TotalLines)
}
