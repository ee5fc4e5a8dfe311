package cddb

import (
	"strconv"

	"gocddb/model"
)

// DiscID computes the CDDB disc identifier from track offsets (in frames) and
// the total disc length (in seconds). The result is lowercase hex without
// zero padding.
func DiscID(offsets []int, lengthSeconds int) string {
	n := 0
	for _, offset := range offsets {
		n += digitSum(offset / model.FramesPerSecond)
	}

	id := uint32(n%0xff)<<24 | uint32(lengthSeconds-2)<<8 | uint32(len(offsets)&0xff)
	return strconv.FormatUint(uint64(id), 16)
}

func digitSum(n int) int {
	if n < 0 {
		n = -n
	}
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}
