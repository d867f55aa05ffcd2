// Package clock solves oscillator and divider coefficients that reproduce a
// colour-subcarrier multiple from a fixed crystal. Everything here is pure
// arithmetic except Oscillator, which arbitrates the shared hardware.
package clock

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasible reports that no coefficients reach the requested
	// frequency within hardware range. The engine must not start on it.
	ErrInfeasible = errors.New("clock: frequency out of range")

	// ErrResourceBusy reports that the oscillator is locked to another
	// frequency by more than one holder. The configured frequency is
	// returned alongside it.
	ErrResourceBusy = errors.New("clock: oscillator busy at another frequency")

	// ErrNotAcquired reports Apply without a prior Acquire.
	ErrNotAcquired = errors.New("clock: oscillator not acquired")
)

// Multiplier band of the oscillator and the resulting output range.
//
//	out = xtal * (4 + sdm2 + sdm1/256 + sdm0/65536) / ((odiv + 2) * 2)
//
// where the numerator must lie within [MultiplierMinHz, MultiplierMaxHz]
// and odiv within [0, MaxOutputDivider].
const (
	MultiplierMinHz  = 350000000
	MultiplierMaxHz  = 500000000
	MaxOutputDivider = 31
	MaxSDM2          = 63

	// MinOutputHz is MultiplierMinHz / ((MaxOutputDivider + 2) * 2), rounded up.
	MinOutputHz = 5303031
	// MaxOutputHz is MultiplierMaxHz / ((0 + 2) * 2).
	MaxOutputHz = 125000000

	sdmScale = 65536
)

// Coefficients configure the oscillator.
type Coefficients struct {
	ODiv uint32 // output divider, 0..31
	SDM0 uint32 // 1/65536 steps, 0..255
	SDM1 uint32 // 1/256 steps, 0..255
	SDM2 uint32 // integer steps, 0..63
}

// MultiplierHz is the frequency ahead of the output divider.
func (c Coefficients) MultiplierHz(xtalHz uint32) float64 {
	return float64(xtalHz) * (4 + float64(c.SDM2) + float64(c.SDM1)/256 + float64(c.SDM0)/sdmScale)
}

// OutputHz is the oscillator output for the given crystal.
func (c Coefficients) OutputHz(xtalHz uint32) uint32 {
	return uint32(c.MultiplierHz(xtalHz) / float64((c.ODiv+2)*2))
}

func (c Coefficients) String() string {
	return fmt.Sprintf("odiv=%d sdm0=%#02x sdm1=%#02x sdm2=%#x", c.ODiv, c.SDM0, c.SDM1, c.SDM2)
}

// Coarse picks oscillator coefficients for targetHz. The output divider is
// the smallest one that keeps the multiplier at or above MultiplierMinHz;
// failing that, the largest one that keeps it at or below MultiplierMaxHz.
// The fractional part is rounded to the nearest 1/65536 and carried into
// sdm2 when it is within half a step of one.
func Coarse(xtalHz, targetHz uint32) (Coefficients, uint32, error) {
	if xtalHz == 0 {
		return Coefficients{}, 0, fmt.Errorf("%w: crystal frequency unset", ErrInfeasible)
	}
	if targetHz < MinOutputHz || targetHz > MaxOutputHz {
		return Coefficients{}, 0, fmt.Errorf("%w: %d Hz outside [%d, %d]", ErrInfeasible, targetHz, MinOutputHz, MaxOutputHz)
	}

	twice := float64(targetHz) * 2
	odiv := int(MultiplierMinHz/twice+1) - 2
	if odiv > MaxOutputDivider {
		return Coefficients{}, 0, fmt.Errorf("%w: %d Hz too low", ErrInfeasible, targetHz)
	}
	if odiv < 0 {
		odiv = int(MultiplierMaxHz/twice) - 2
		if odiv < 0 {
			return Coefficients{}, 0, fmt.Errorf("%w: %d Hz too high", ErrInfeasible, targetHz)
		}
	}

	scaled := uint64(odiv+2) * 2 * uint64(targetHz)
	sdm2 := int(scaled/uint64(xtalHz)) - 4
	frac := float64(scaled)/float64(xtalHz) - 4 - float64(sdm2)

	const half = 1.0 / sdmScale / 2
	var sdm0, sdm1 int
	if frac > 1.0-half {
		sdm2++
	} else if frac > half {
		v := int(frac*sdmScale + 0.5)
		if v >= sdmScale {
			sdm2++
			v = 0
		}
		sdm1 = v / 256
		sdm0 = v % 256
	}
	if sdm2 < 0 || sdm2 > MaxSDM2 {
		return Coefficients{}, 0, fmt.Errorf("%w: sdm2=%d for %d Hz", ErrInfeasible, sdm2, targetHz)
	}

	c := Coefficients{
		ODiv: uint32(odiv),
		SDM0: uint32(sdm0),
		SDM1: uint32(sdm1),
		SDM2: uint32(sdm2),
	}
	return c, c.OutputHz(xtalHz), nil
}
