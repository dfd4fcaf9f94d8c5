package protocol

// DVM network function codes (byte 18 of the outer transport header).
const (
	FuncProtocol   = 0x00
	FuncRPTL       = 0x60
	FuncRPTK       = 0x61
	FuncRPTC       = 0x62
	FuncDisconnect = 0x70
	FuncPing       = 0x74
	FuncPong       = 0x75
	FuncAck        = 0x7E
	FuncNak        = 0x7F
)

// DVM network sub-function codes (byte 19 of the outer transport header).
const (
	SubFuncNOP = 0xFF
	SubFuncP25 = 0x01
)

// P25 data unit IDs (byte 22 of the inner message header).
const (
	DUIDLDU1 = 0x05
	DUIDLDU2 = 0x0A
	DUIDTDU  = 0x03
)

// P25 link control opcodes.
const (
	LCOGroupVoice = 0x00
	LCOCallTerm   = 0x0F
)

// NetCtrlGrantDemand is written into the TDU control byte to request a
// channel grant announcement from the network.
const NetCtrlGrantDemand = 0x80

// RTPEndOfCallSeq is the literal RTP sequence number written into the
// terminating TDU of a call, in place of the monotonic counter.
const RTPEndOfCallSeq = 0xFFFF

// DVMFrameStart marks the RTP extension header used by every DVM frame.
const DVMFrameStart = 0xFE

// RTPPayloadType is the RTP payload type used for all DVM traffic.
const RTPPayloadType = 0x56

// IngressMagic is the two-byte prefix every ingress frame record begins with.
const IngressMagic uint16 = 0x4F50

// IngressFrameSize is the fixed wire size of an ingress frame record.
const IngressFrameSize = 27

// IMBEFrameSize is the size in bytes of one opaque voice payload.
const IMBEFrameSize = 11

// Ingress frame types.
const (
	IngressFrameLDU1 = 1
	IngressFrameLDU2 = 2
)

// Fixed payload sizes of the three P25 message kinds, header included.
const (
	LDU1Length = 201
	LDU2Length = 189
	TDULength  = 24
)

// OuterHeaderLength is the size of the RTP+extension transport header
// prepended to every DVM message.
const OuterHeaderLength = 32

// InnerHeaderLength is the size of the P25 message header prepended to
// every LDU1/LDU2/TDU payload.
const InnerHeaderLength = 24

// Handshake frame sizes.
const (
	RPTLFrameSize = 40
	RPTKFrameSize = 72
	PingFrameSize = 43
)

// Default identifiers, used when configuration does not override them.
const (
	DefaultWACN      = 0x92C19
	DefaultSystemID  = 0x50E
	DefaultPeerID    = 9000999
	DefaultIdentity  = "OP25-Gateway"
	DefaultSoftware  = "OP25-Gateway-1.0"
	DefaultTimeoutMs = 1000
)
