package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferToLE appends the samples to dst as 32-bit little-endian floats,
// clipped to [-1, 1], and returns the extended slice.
func FloatBufferToLE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
