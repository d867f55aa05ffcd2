package timing

// ire converts an IRE level into a sample word for a 3.3V 8-bit DAC.
// The DAC consumes the high byte of each word.
func ire(x float64) uint16 {
	return uint16(uint32((x+40)*255/3.3/147.5) << 8)
}

// Signal levels as sample words.
var (
	SyncLevel     = ire(-40)
	BlankingLevel = ire(0)
	BlackLevel    = ire(7.5)
	GrayLevel     = ire(50)
	WhiteLevel    = ire(100)
)

// Code returns the DAC code carried by a sample word.
func Code(w uint16) uint8 { return uint8(w >> 8) }
