package endpoint

import "math"

// RMS returns the root-mean-square amplitude of a frame of 16-bit
// little-endian mono PCM. An odd trailing byte is ignored.
func RMS(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(uint16(frame[2*i]) | uint16(frame[2*i+1])<<8)
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}
