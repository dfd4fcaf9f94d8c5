package protocol

// Counters holds the running RTP sequence and timestamp a session lends
// to the header builder. The builder mutates them in place so the
// caller's next frame picks up where this one left off.
type Counters struct {
	Seq uint16
	TS  uint32
}

// BuildOuterHeader assembles the 32-byte RTP/extension transport header
// shared by every handshake and voice frame. It advances c.TS by 160 on
// every call and advances c.Seq by one unless endOfCall is set, in which
// case the literal end-of-call sequence number is written instead and
// the counter is left untouched.
func BuildOuterHeader(c *Counters, fn, subFn byte, streamID, peerID uint32, payloadLen int, endOfCall bool) []byte {
	buf := make([]byte, OuterHeaderLength)

	buf[0] = 0x90
	buf[1] = RTPPayloadType

	var seqNum uint16
	if endOfCall {
		seqNum = RTPEndOfCallSeq
	} else {
		seqNum = c.Seq
		c.Seq++
	}
	buf[2] = byte(seqNum >> 8)
	buf[3] = byte(seqNum)

	c.TS += 160
	buf[4] = byte(c.TS >> 24)
	buf[5] = byte(c.TS >> 16)
	buf[6] = byte(c.TS >> 8)
	buf[7] = byte(c.TS)

	buf[8] = byte(peerID >> 24)
	buf[9] = byte(peerID >> 16)
	buf[10] = byte(peerID >> 8)
	buf[11] = byte(peerID)

	buf[12] = 0x00
	buf[13] = DVMFrameStart
	buf[14] = 0x00
	buf[15] = 0x04

	buf[16] = 0x00 // CRC placeholder, filled in by InsertCRC
	buf[17] = 0x00

	buf[18] = fn
	buf[19] = subFn

	buf[20] = byte(streamID >> 24)
	buf[21] = byte(streamID >> 16)
	buf[22] = byte(streamID >> 8)
	buf[23] = byte(streamID)

	buf[24] = byte(peerID >> 24)
	buf[25] = byte(peerID >> 16)
	buf[26] = byte(peerID >> 8)
	buf[27] = byte(peerID)

	l := uint32(payloadLen)
	buf[28] = byte(l >> 24)
	buf[29] = byte(l >> 16)
	buf[30] = byte(l >> 8)
	buf[31] = byte(l)

	return buf
}

// BuildInnerHeader assembles the 24-byte P25 message header prepended to
// every LDU1/LDU2/TDU payload.
func BuildInnerHeader(duid byte, srcID, dstID, wacn uint32, sysID uint16, count byte) []byte {
	buf := make([]byte, InnerHeaderLength)

	buf[0] = 'P'
	buf[1] = '2'
	buf[2] = '5'
	buf[3] = 'D'

	buf[4] = LCOGroupVoice

	buf[5] = byte(srcID >> 16)
	buf[6] = byte(srcID >> 8)
	buf[7] = byte(srcID)

	buf[8] = byte(dstID >> 16)
	buf[9] = byte(dstID >> 8)
	buf[10] = byte(dstID)

	buf[11] = byte(sysID >> 8)
	buf[12] = byte(sysID)

	buf[13] = 0x00 // reserved
	buf[14] = 0x00 // control
	buf[15] = 0x00 // MFId

	buf[16] = byte(wacn >> 16)
	buf[17] = byte(wacn >> 8)
	buf[18] = byte(wacn)

	buf[19] = 0x00 // reserved
	buf[20] = 0x00 // LSD
	buf[21] = 0x00

	buf[22] = duid
	buf[23] = count

	return buf
}
