// Package shortvec implements the compact length prefix used in Solana
// messages: little endian base 128, at most three bytes.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedBytes = 3

var ErrLengthTooLarge = errors.Errorf("length exceeds %d", math.MaxUint16)

// EncodeLen writes length to w, returning the number of bytes written
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, ErrLengthTooLarge
	}

	var buf [maxEncodedBytes]byte
	n := 0
	for {
		buf[n] = byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			n++
			break
		}
		buf[n] |= 0x80
		n++
	}

	return w.Write(buf[:n])
}

// DecodeLen reads a length written by EncodeLen from r
func DecodeLen(r io.Reader) (int, error) {
	var b [1]byte
	var length int
	for i := 0; i < maxEncodedBytes; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		length |= int(b[0]&0x7f) << (7 * i)
		if b[0]&0x80 == 0 {
			return length, nil
		}
	}
	return 0, errors.Errorf("length prefix longer than %d bytes", maxEncodedBytes)
}
