package settings

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

var checksumKey = []byte("checksum")

// entryHash hashes one name/value pair. The store checksum is the XOR of all
// entry hashes, so it can be updated per write without rescanning.
func entryHash(name string, raw []byte) uint64 {
	d := xxhash.New()
	d.WriteString(name)
	d.Write([]byte{0})
	d.Write(raw)
	return d.Sum64()
}

func encodeChecksum(sum uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, sum)
}

func decodeChecksum(raw []byte) (uint64, bool) {
	if len(raw) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(raw), true
}
