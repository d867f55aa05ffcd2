package clock

import "fmt"

// Strategy selects how the sample clock is derived from the oscillator.
type Strategy uint8

const (
	// Direct runs the oscillator at the sample rate times a fixed
	// transmitter divider (I2S parallel mode).
	Direct Strategy = iota + 1
	// Divided runs the oscillator at a band limit and reaches the sample
	// rate through an interval pre-divider and a fractional divider
	// (DAC DMA controller).
	Divided
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Divided:
		return "divided"
	default:
		return "unknown"
	}
}

// Fractional divider limits of the DAC DMA controller.
const (
	dividerMinInteger  = 1
	dividerMaxInteger  = 257
	dividerMaxFraction = 64

	intervalMax = 4095
)

// Config describes the clock tree feeding the sample output.
type Config struct {
	XtalHz   uint32
	Strategy Strategy

	// TransmitDivider is the fixed ratio between oscillator and sample
	// clock for Direct. Zero means 4.
	TransmitDivider uint32
}

// Plan is a solved clock configuration.
type Plan struct {
	Strategy Strategy

	// SampleTargetHz is the requested sample rate.
	SampleTargetHz uint32

	// OscillatorTargetHz is what the oscillator is asked for, and
	// OscillatorHz what the coefficients produce.
	OscillatorTargetHz uint32
	OscillatorHz       uint32
	Coefficients       Coefficients

	// Interval and Divider take the oscillator down to the sample clock.
	Interval uint32
	Divider  Divider

	// SampleHz is the resulting sample rate.
	SampleHz uint32
}

// ErrorPPM is the relative error of the achieved sample rate in parts per
// million.
func (p Plan) ErrorPPM() float64 {
	if p.SampleTargetHz == 0 {
		return 0
	}
	return (float64(p.SampleHz) - float64(p.SampleTargetHz)) / float64(p.SampleTargetHz) * 1e6
}

func (p Plan) String() string {
	return fmt.Sprintf("%s: osc %d Hz (%s) / %d / %s = %d Hz (%+.2f ppm)",
		p.Strategy, p.OscillatorHz, p.Coefficients, p.Interval, p.Divider, p.SampleHz, p.ErrorPPM())
}

// Solve computes the plan for sampleHz. It does not touch hardware.
func Solve(cfg Config, sampleHz uint32) (Plan, error) {
	if sampleHz == 0 {
		return Plan{}, fmt.Errorf("%w: zero sample rate", ErrInfeasible)
	}
	p := Plan{Strategy: cfg.Strategy, SampleTargetHz: sampleHz}
	switch cfg.Strategy {
	case Direct:
		div := cfg.transmitDivider()
		p.OscillatorTargetHz = sampleHz * div
	case Divided:
		p.OscillatorTargetHz = MaxOutputHz
	default:
		return Plan{}, fmt.Errorf("%w: unknown strategy %d", ErrInfeasible, cfg.Strategy)
	}

	c, hz, err := Coarse(cfg.XtalHz, p.OscillatorTargetHz)
	if err != nil {
		return Plan{}, err
	}
	p.Coefficients = c
	return cfg.Rebase(p, hz)
}

// Rebase recomputes the dividers of p for an oscillator running at oscHz.
// It is used when the oscillator is shared and locked to another frequency.
func (cfg Config) Rebase(p Plan, oscHz uint32) (Plan, error) {
	p.OscillatorHz = oscHz
	switch p.Strategy {
	case Direct:
		div := cfg.transmitDivider()
		p.Interval = 1
		p.Divider = Divider{Integer: div, Denominator: 1}
		p.SampleHz = oscHz / div
		if p.SampleHz == 0 {
			return Plan{}, fmt.Errorf("%w: oscillator at %d Hz", ErrInfeasible, oscHz)
		}
		return p, nil
	case Divided:
		total := oscHz / p.SampleTargetHz
		if total < 2 {
			return Plan{}, fmt.Errorf("%w: %d Hz too high for a %d Hz oscillator", ErrInfeasible, p.SampleTargetHz, oscHz)
		}
		var interval uint32
		switch {
		case total < 256:
			interval = 1
		case total < 8192:
			interval = total / 2
		default:
			interval = intervalMax
		}
		if interval*256 <= total {
			return Plan{}, fmt.Errorf("%w: %d Hz too low for a %d Hz oscillator", ErrInfeasible, p.SampleTargetHz, oscHz)
		}
		d, hz := Fractional(DividerRequest{
			SourceHz:    oscHz / interval,
			TargetHz:    p.SampleTargetHz,
			MinInteger:  dividerMinInteger,
			MaxInteger:  dividerMaxInteger,
			MaxFraction: dividerMaxFraction,
		})
		if hz == 0 {
			return Plan{}, fmt.Errorf("%w: no divider for %d Hz from %d Hz", ErrInfeasible, p.SampleTargetHz, oscHz)
		}
		p.Interval = interval
		p.Divider = d
		p.SampleHz = hz
		return p, nil
	}
	return Plan{}, fmt.Errorf("%w: unknown strategy %d", ErrInfeasible, p.Strategy)
}

func (cfg Config) transmitDivider() uint32 {
	if cfg.TransmitDivider == 0 {
		return 4
	}
	return cfg.TransmitDivider
}
