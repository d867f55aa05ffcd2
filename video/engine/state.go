package engine

import "tvout/video/timing"

// Region is the part of a field a scanline belongs to.
type Region uint8

const (
	RegionActive Region = iota + 1
	// NTSC.
	RegionPostBlank
	RegionVSync
	RegionPreBlank
	// PAL.
	RegionPreRender
	RegionPostRender
	RegionVSyncBlock
)

func (r Region) String() string {
	switch r {
	case RegionActive:
		return "active"
	case RegionPostBlank:
		return "post-blank"
	case RegionVSync:
		return "vsync"
	case RegionPreBlank:
		return "pre-blank"
	case RegionPreRender:
		return "pre-render"
	case RegionPostRender:
		return "post-render"
	case RegionVSyncBlock:
		return "vsync-block"
	default:
		return "unknown"
	}
}

// palVSync drives the half-line pulses of PAL rows 304 onwards: bit 1 makes
// the first half-line pulse broad, bit 0 the second.
var palVSync = [8]uint8{0, 0, 0, 3, 3, 2, 0, 0}

// RegionOf classifies field row i.
func RegionOf(p *timing.Profile, i int) Region {
	if p.Standard == timing.PAL {
		switch {
		case i < p.ActiveTop:
			return RegionPreRender
		case i < p.ActiveTop+p.ActiveLines:
			return RegionActive
		case i < p.VSyncStart:
			return RegionPostRender
		default:
			return RegionVSyncBlock
		}
	}
	switch {
	case i < p.ActiveLines:
		return RegionActive
	case i < p.VSyncStart:
		return RegionPostBlank
	case i < p.VSyncEnd:
		return RegionVSync
	default:
		return RegionPreBlank
	}
}
