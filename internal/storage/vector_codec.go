// ABOUTME: Binary encoding of embedding vectors for BLOB columns.
// ABOUTME: Little-endian IEEE-754 float64, 8 bytes per component.
package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

func encodeVector(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 8", len(data))
	}
	vec := make([]float64, len(data)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vec, nil
}
