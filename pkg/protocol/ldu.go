package protocol

// VoiceGroup is the nine opaque 11-byte voice payloads that make up one
// P25 logical data unit, indexed by voice_index (0-8).
type VoiceGroup [9][IMBEFrameSize]byte

// BuildLDU1 assembles a 201-byte LDU1 frame. When firstLDU is set, the
// trailer at offsets 180-181 signals a new call (HDU_VALID + unencrypted
// algorithm ID); otherwise the trailer is left zeroed.
func BuildLDU1(voice VoiceGroup, srcID, dstID, wacn uint32, sysID uint16, firstLDU bool) []byte {
	buf := make([]byte, LDU1Length)
	copy(buf, BuildInnerHeader(DUIDLDU1, srcID, dstID, wacn, sysID, 0xB2))

	lc := EncodeLinkControl(srcID, dstID)

	buf[24] = 0x62
	buf[25] = lc[0]
	buf[26] = lc[1]
	buf[27] = lc[2]
	buf[28] = lc[3]
	buf[29] = lc[4]
	copy(buf[34:45], voice[0][:])

	buf[46] = 0x63
	copy(buf[47:58], voice[1][:])

	buf[60] = 0x64
	buf[61] = lc[5]
	buf[62] = lc[6]
	buf[63] = lc[7]
	copy(buf[65:76], voice[2][:])

	buf[77] = 0x65
	buf[78] = lc[8]
	buf[79] = lc[9]
	buf[80] = lc[10]
	copy(buf[82:93], voice[3][:])

	buf[94] = 0x66
	buf[95] = lc[11]
	buf[96] = lc[12]
	buf[97] = lc[13]
	copy(buf[99:110], voice[4][:])

	buf[111] = 0x67
	buf[112] = lc[14]
	buf[113] = lc[15]
	buf[114] = lc[16]
	copy(buf[116:127], voice[5][:])

	buf[128] = 0x68
	buf[129] = lc[17]
	buf[130] = lc[18]
	buf[131] = lc[19]
	copy(buf[133:144], voice[6][:])

	buf[145] = 0x69
	buf[146] = lc[20]
	buf[147] = lc[21]
	buf[148] = lc[22]
	copy(buf[150:161], voice[7][:])

	buf[162] = 0x6A
	// bytes 163-164 are LSD, left zeroed
	copy(buf[166:177], voice[8][:])

	if firstLDU {
		buf[180] = 0x01
		buf[181] = 0x80
	}

	return buf
}

// BuildLDU2 assembles a 189-byte LDU2 frame. Encryption-state bytes are
// fixed to the unencrypted values: a zero message indicator, algorithm
// ID 0x80, and the Reed-Solomon parity for an all-zero unencrypted ESS.
func BuildLDU2(voice VoiceGroup, srcID, dstID, wacn uint32, sysID uint16) []byte {
	buf := make([]byte, LDU2Length)
	copy(buf, BuildInnerHeader(DUIDLDU2, srcID, dstID, wacn, sysID, 0xB2))

	buf[24] = 0x6B
	// bytes 25-29 are the message indicator, zero for unencrypted
	copy(buf[34:45], voice[0][:])

	buf[46] = 0x6C
	copy(buf[47:58], voice[1][:])

	buf[60] = 0x6D
	copy(buf[65:76], voice[2][:])

	buf[77] = 0x6E
	copy(buf[82:93], voice[3][:])

	buf[94] = 0x6F
	copy(buf[99:110], voice[4][:])

	buf[111] = 0x70
	buf[112] = 0x80 // algorithm ID: unencrypted
	// bytes 113-114 are key ID, zero
	copy(buf[116:127], voice[5][:])

	buf[128] = 0x71
	buf[129] = 0xAC
	buf[130] = 0xB8
	buf[131] = 0xA4
	copy(buf[133:144], voice[6][:])

	buf[145] = 0x72
	buf[146] = 0x9B
	buf[147] = 0xDC
	buf[148] = 0x75
	copy(buf[150:161], voice[7][:])

	buf[162] = 0x73
	// bytes 163-164 are LSD, left zeroed
	copy(buf[166:177], voice[8][:])

	buf[180] = 0x00

	return buf
}

// BuildTDU assembles the 24-byte terminating/grant-demand unit. When
// grantDemand is set, the control byte requests a channel grant
// announcement; otherwise the LCO is set to call-termination.
func BuildTDU(srcID, dstID, wacn uint32, sysID uint16, grantDemand bool) []byte {
	buf := BuildInnerHeader(DUIDTDU, srcID, dstID, wacn, sysID, TDULength)
	if grantDemand {
		buf[14] = NetCtrlGrantDemand
	} else {
		buf[4] = LCOCallTerm
	}
	return buf
}
