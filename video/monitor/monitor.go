// Package monitor decodes a composite sample stream back into a picture, the
// way a television would: it locks to vertical sync, then demodulates luma
// and chroma of each active line using the colour burst as phase reference.
// It stands in for the display on host builds and in the dump tool.
package monitor

import (
	"hash"
	"image"

	"tvout/video/timing"
)

// syncThreshold separates sync tips from blanking.
var syncThreshold = (timing.SyncLevel + timing.BlankingLevel) / 2

// Decoder turns transmitted lines into RGBA fields. The zero value is not
// usable; call NewDecoder.
type Decoder struct {
	prof  timing.Profile
	valid bool

	// inv[parity][group position] maps three samples to Y, U, V.
	inv    [2][4][3][3]float64
	phases [4][3]int

	black, span float64

	inVSync bool
	locked  bool
	next    int

	img *image.RGBA

	fields  uint32
	digests uint32
	hash    hash.Hash64
	scratch []byte
	digest  uint64
}

// NewDecoder returns a decoder that configures itself from the first line
// it sees.
func NewDecoder() *Decoder {
	return &Decoder{
		img:  image.NewRGBA(image.Rect(0, 0, timing.Width, timing.ActiveLines)),
		hash: newHash(),
	}
}

// Profile returns the detected profile.
func (d *Decoder) Profile() (timing.Profile, bool) { return d.prof, d.valid }

// Locked reports whether the decoder is locked to vertical sync.
func (d *Decoder) Locked() bool { return d.locked }

// Image returns the picture. It is updated in place as lines arrive.
func (d *Decoder) Image() *image.RGBA { return d.img }

// Fields returns the number of complete pictures decoded.
func (d *Decoder) Fields() uint32 { return d.fields }

// FieldDigest returns the digest of the raw samples of the last complete
// field, counted from the end of one vertical sync to the end of the next,
// and the number of digests taken so far.
func (d *Decoder) FieldDigest() (uint64, uint32) { return d.digest, d.digests }

// detect picks the profile matching a line length.
func detect(n int) (timing.Profile, bool) {
	for _, m := range []struct {
		std  timing.Standard
		spcc int
	}{{timing.NTSC, 4}, {timing.NTSC, 3}, {timing.PAL, 4}} {
		p, err := timing.New(m.std, m.spcc)
		if err == nil && p.LineWidth == n {
			return p, true
		}
	}
	return timing.Profile{}, false
}

func (d *Decoder) configure(p timing.Profile) {
	d.prof = p
	d.valid = true
	d.locked = false
	d.inVSync = false
	d.black = float64(timing.Code(timing.BlackLevel))
	d.span = float64(timing.Code(timing.WhiteLevel)) - d.black

	spcc := p.SamplesPerColorClock
	for j := 0; j < p.PixelsPerGroup; j++ {
		for i := 0; i < 3; i++ {
			d.phases[j][i] = (p.PixelStart + j*p.SamplesPerPixel + i) % spcc
		}
		for s, vSign := range [2]float64{-1, 1} {
			var m [3][3]float64
			for i, k := range d.phases[j] {
				sin, cos := phase(spcc, k)
				m[i] = [3]float64{1, -0.5 * sin, vSign * 0.5 * cos}
			}
			d.inv[s][j] = invert(m)
		}
	}
}

func phase(spcc, k int) (sin, cos float64) {
	if spcc == 3 {
		return [3]float64{0, 0.8660254037844386, -0.8660254037844386}[k], [3]float64{1, -0.5, -0.5}[k]
	}
	return [4]float64{0, 1, 0, -1}[k], [4]float64{1, 0, -1, 0}[k]
}

// Feed consumes one line and reports whether it completed a picture.
func (d *Decoder) Feed(line []uint16) bool {
	if !d.valid || len(line) != d.prof.LineWidth {
		p, ok := detect(len(line))
		if !ok {
			d.valid = false
			d.locked = false
			return false
		}
		d.configure(p)
	}

	w := pulseWidth(line)
	switch {
	case w == 0:
		d.locked = false
		d.inVSync = false
		return false
	case w < d.prof.HSync/2 || w > d.prof.HSync*2:
		d.inVSync = true
		if d.locked {
			d.hashLine(line)
			d.next = (d.next + 1) % d.prof.TotalLines
		}
		return false
	}

	if d.inVSync {
		d.inVSync = false
		if d.locked {
			d.digest = d.hash.Sum64()
			d.digests++
		}
		d.hash.Reset()
		d.locked = true
		d.next = d.prof.VSyncEnd % d.prof.TotalLines
	}
	if !d.locked {
		return false
	}

	row := d.next
	d.next = (row + 1) % d.prof.TotalLines
	d.hashLine(line)

	src := d.prof.SourceRow(row)
	if src < 0 {
		return false
	}
	d.decodeRow(line, src)
	if src == d.prof.ActiveLines-1 {
		d.fields++
		return true
	}
	return false
}

func pulseWidth(line []uint16) int {
	n := 0
	for n < len(line) && line[n] < syncThreshold {
		n++
	}
	return n
}

func (d *Decoder) decodeRow(line []uint16, row int) {
	p := &d.prof
	parity := 0
	if p.Standard == timing.PAL && line[p.BurstStart] > timing.BlankingLevel {
		parity = 1
	}
	pix := d.img.Pix[row*d.img.Stride:]
	for x := 0; x < p.Width; x++ {
		j := x % p.PixelsPerGroup
		base := p.PixelStart + x*p.SamplesPerPixel
		var a [3]float64
		for i := range a {
			a[i] = (float64(timing.Code(line[base+i])) - d.black) / d.span
		}
		m := &d.inv[parity][j]
		luma := m[0][0]*a[0] + m[0][1]*a[1] + m[0][2]*a[2]
		u := m[1][0]*a[0] + m[1][1]*a[1] + m[1][2]*a[2]
		v := m[2][0]*a[0] + m[2][1]*a[1] + m[2][2]*a[2]

		b := luma + u/.492
		r := luma + v/.877
		g := (luma - .299*r - .114*b) / .587
		o := x * 4
		pix[o+0] = unit(r)
		pix[o+1] = unit(g)
		pix[o+2] = unit(b)
		pix[o+3] = 0xff
	}
}

func unit(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func invert(m [3][3]float64) [3][3]float64 {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	var r [3][3]float64
	r[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / det
	r[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det
	r[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det
	r[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / det
	r[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det
	r[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det
	r[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / det
	r[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det
	r[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det
	return r
}
