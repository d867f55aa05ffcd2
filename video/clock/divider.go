package clock

import "fmt"

// DividerRequest describes a fractional divider search.
//
// The integer part must fall in [MinInteger, MaxInteger). Numerator and
// denominator are searched below MaxFraction, which must exceed 2.
type DividerRequest struct {
	SourceHz    uint32
	TargetHz    uint32
	MinInteger  uint32
	MaxInteger  uint32
	MaxFraction uint32
}

// Divider is source / (Integer + Numerator/Denominator).
type Divider struct {
	Integer     uint32
	Numerator   uint32
	Denominator uint32
}

func (d Divider) String() string {
	return fmt.Sprintf("%d+%d/%d", d.Integer, d.Numerator, d.Denominator)
}

// OutputHz reproduces the divided frequency, rounded to nearest.
func (d Divider) OutputHz(sourceHz uint32) uint32 {
	if d.Integer == 0 {
		return 0
	}
	if d.Numerator == 0 {
		return sourceHz / d.Integer
	}
	t := uint64(d.Integer)*uint64(d.Denominator) + uint64(d.Numerator)
	return uint32((uint64(sourceHz)*uint64(d.Denominator) + t/2) / t)
}

// Fractional searches the divider closest to the request. A zero frequency
// is returned when the integer part falls outside the allowed range.
//
// The remainder is carried into the integer part when it reaches
// target - (target/(MaxFraction-1))*2. Otherwise every denominator in
// [2, MaxFraction) is tried with its nearest numerator and the first
// denominator reaching the smallest error wins; an exact hit stops the scan.
func Fractional(req DividerRequest) (Divider, uint32) {
	if req.TargetHz == 0 || req.MaxFraction <= 2 {
		return Divider{}, 0
	}

	integer := req.SourceHz / req.TargetHz
	rem := uint64(req.SourceHz % req.TargetHz)
	target := uint64(req.TargetHz)

	d := Divider{Denominator: 2}
	if rem != 0 {
		carry := target - (target/uint64(req.MaxFraction-1))*2
		if rem < carry {
			best := ^uint64(0)
			for a := uint64(2); best != 0 && a < uint64(req.MaxFraction); a++ {
				b := (a*rem + target/2) / target
				diff := absDiff(target*b, rem*a)
				if diff < best {
					d.Denominator = uint32(a)
					d.Numerator = uint32(b)
					best = diff
				}
			}
		} else {
			integer++
		}
	}

	if integer == 0 || integer < req.MinInteger || integer >= req.MaxInteger {
		return Divider{}, 0
	}
	d.Integer = integer
	return d, d.OutputHz(req.SourceHz)
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
