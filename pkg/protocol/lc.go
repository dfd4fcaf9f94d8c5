package protocol

// EncodeLinkControl produces the 24-byte Reed-Solomon-encoded link
// control block embedded across an LDU1's voice subframes. Real P25
// uses RS(24,12,13) to protect these bytes; this implementation keeps
// the 9 clear LC bytes (LCO, MFID, service options, 3-byte destination,
// 3-byte source) and leaves the remaining 15 parity bytes zeroed. A real
// codec can replace this function without any caller changes.
func EncodeLinkControl(srcID, dstID uint32) [24]byte {
	var rs [24]byte

	rs[0] = LCOGroupVoice
	rs[1] = 0x00 // MFID
	rs[2] = 0x00 // service options
	rs[3] = byte(dstID >> 16)
	rs[4] = byte(dstID >> 8)
	rs[5] = byte(dstID)
	rs[6] = byte(srcID >> 16)
	rs[7] = byte(srcID >> 8)
	rs[8] = byte(srcID)

	return rs
}
