package monitor

import (
	"encoding/binary"
	"hash"

	"github.com/cespare/xxhash"
)

func newHash() hash.Hash64 { return xxhash.New() }

func (d *Decoder) hashLine(line []uint16) {
	d.scratch = appendSamples(d.scratch[:0], line)
	d.hash.Write(d.scratch)
}

func appendSamples(b []byte, line []uint16) []byte {
	for _, s := range line {
		b = binary.LittleEndian.AppendUint16(b, s)
	}
	return b
}

// Digest hashes lines of samples the same way the decoder hashes a field.
func Digest(lines [][]uint16) uint64 {
	var b []byte
	for _, l := range lines {
		b = appendSamples(b, l)
	}
	return xxhash.Sum64(b)
}
