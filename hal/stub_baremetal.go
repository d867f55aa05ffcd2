//go:build tinygo && baremetal

package hal

import "tvout/video/clock"

// xtalHz is the board crystal.
const xtalHz = 12000000

type stubKeyboard struct{}

func (k *stubKeyboard) Events() <-chan KeyEvent { return nil }

type stubPLL struct{}

func (stubPLL) SetCoefficients(clock.Coefficients) error { return ErrNotImplemented }

// stubVideo stands in for boards without a parallel DAC driver.
type stubVideo struct {
	osc *clock.Oscillator
}

func newStubVideo() *stubVideo {
	return &stubVideo{osc: clock.NewOscillator(xtalHz, stubPLL{})}
}

func (v *stubVideo) Oscillator() *clock.Oscillator { return v.osc }
func (v *stubVideo) ClockStrategy() clock.Strategy { return clock.Divided }
func (v *stubVideo) MaxTransferBytes() int         { return 4092 }

func (v *stubVideo) AllocSamples(int) ([]uint16, error) { return nil, ErrNotImplemented }
func (v *stubVideo) FreeSamples([]uint16)               {}

func (v *stubVideo) Start(clock.Plan, [2][]uint16, ScanlineFunc) error {
	return ErrNotImplemented
}

func (v *stubVideo) DisableInterrupt() {}
func (v *stubVideo) Stop()             {}
