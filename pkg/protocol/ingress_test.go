package protocol

import "testing"

func TestParseIngressFrame_RoundTrip(t *testing.T) {
	f := IngressFrame{
		NAC:       0x1A2B,
		Talkgroup: 1001,
		SourceID:  5001,
		FrameType: IngressFrameLDU1,
		VoiceIdx:  3,
		Flags:     0,
		Reserved:  0,
	}
	for i := range f.Voice {
		f.Voice[i] = byte(i + 1)
	}

	encoded := EncodeIngressFrame(f)
	if len(encoded) != IngressFrameSize {
		t.Fatalf("expected %d bytes, got %d", IngressFrameSize, len(encoded))
	}

	parsed, err := ParseIngressFrame(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != f {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, f)
	}
}

func TestParseIngressFrame_RejectsShortDatagram(t *testing.T) {
	_, err := ParseIngressFrame(make([]byte, 10))
	if err == nil {
		t.Fatal("expected error for short datagram")
	}
}

func TestParseIngressFrame_RejectsBadMagic(t *testing.T) {
	data := make([]byte, IngressFrameSize)
	data[0] = 0x00
	data[1] = 0x00
	_, err := ParseIngressFrame(data)
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}
