package protocol

import "crypto/rand"

// RandomStreamID returns a fresh 31-bit nonzero stream id, the form
// the DVM wire protocol expects in every outer header.
func RandomStreamID() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	id := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return (id & 0x7FFFFFFF) | 1, nil
}
