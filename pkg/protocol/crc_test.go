package protocol

import "testing"

func TestCRC16CCITT_ReferenceVectors(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want uint16
	}{
		{"all-zero-4-bytes", []byte{0x00, 0x00, 0x00, 0x00}, 0x1D0F},
		{"ascii-123456789", []byte("123456789"), 0x29B1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CRC16CCITT(c.data); got != c.want {
				t.Errorf("CRC16CCITT(%q) = 0x%04X, want 0x%04X", c.data, got, c.want)
			}
		})
	}
}

func TestInsertCRC_VerifiesOverPayloadRegion(t *testing.T) {
	c := &Counters{}
	buf := BuildOuterHeader(c, FuncPing, SubFuncNOP, 1, 9000999, 4, false)
	buf = append(buf, 0xAA, 0xBB, 0xCC, 0xDD)
	InsertCRC(buf)

	want := CRC16CCITT(buf[OuterHeaderLength:])
	got := uint16(buf[16])<<8 | uint16(buf[17])
	if got != want {
		t.Errorf("stored CRC 0x%04X does not match recomputed CRC 0x%04X", got, want)
	}
}
