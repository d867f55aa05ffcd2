package clock

import (
	"fmt"
	"sync"
)

// Device writes coefficients into the oscillator hardware and waits for it
// to settle.
type Device interface {
	SetCoefficients(c Coefficients) error
}

// Oscillator is a reference-counted oscillator shared between peripherals.
// While a single holder owns it the frequency may change freely; once two
// or more hold it, the first configured frequency is locked.
type Oscillator struct {
	mu     sync.Mutex
	dev    Device
	xtalHz uint32

	refs  int
	curHz uint32
	cur   Coefficients
}

// NewOscillator wraps dev, fed from a crystal at xtalHz.
func NewOscillator(xtalHz uint32, dev Device) *Oscillator {
	return &Oscillator{dev: dev, xtalHz: xtalHz}
}

// XtalHz returns the crystal frequency.
func (o *Oscillator) XtalHz() uint32 { return o.xtalHz }

// Acquire registers a holder.
func (o *Oscillator) Acquire() {
	o.mu.Lock()
	o.refs++
	o.mu.Unlock()
}

// Release drops a holder. The last release forgets the frequency so the
// next owner may reprogram it.
func (o *Oscillator) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.refs == 0 {
		return
	}
	o.refs--
	if o.refs == 0 {
		o.curHz = 0
		o.cur = Coefficients{}
	}
}

// Holders returns the number of current holders.
func (o *Oscillator) Holders() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refs
}

// FrequencyHz returns the configured frequency, 0 when unconfigured.
func (o *Oscillator) FrequencyHz() uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.curHz
}

// Apply programs the oscillator for targetHz and returns the frequency it
// runs at. Applying the frequency already configured is a no-op. When
// another holder has locked a different frequency the locked frequency is
// returned with ErrResourceBusy and the hardware is left untouched.
func (o *Oscillator) Apply(targetHz uint32) (uint32, error) {
	c, hz, err := Coarse(o.xtalHz, targetHz)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	if o.refs == 0 {
		o.mu.Unlock()
		return 0, ErrNotAcquired
	}
	if o.curHz == hz {
		o.mu.Unlock()
		return hz, nil
	}
	if o.curHz != 0 && o.refs >= 2 {
		cur := o.curHz
		o.mu.Unlock()
		return cur, fmt.Errorf("%w: running at %d Hz", ErrResourceBusy, cur)
	}
	o.curHz = hz
	o.cur = c
	o.mu.Unlock()

	if o.dev != nil {
		if err := o.dev.SetCoefficients(c); err != nil {
			return 0, fmt.Errorf("clock: configure oscillator (%s): %w", c, err)
		}
	}
	return hz, nil
}
