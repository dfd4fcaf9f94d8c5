// Package testhelpers provides test doubles shared across this
// module's packages.
package testhelpers

import (
	"net"
	"sync"
	"time"

	"github.com/hambridge/p25gw/pkg/protocol"
)

// FakeFNE is a minimal upstream network server double: it accepts the
// RPTL/RPTK/RPTC handshake, ACKs every step, replies PONG to PING, and
// records every P25 payload it receives for assertions.
type FakeFNE struct {
	conn *net.UDPConn
	salt uint32

	mu       sync.Mutex
	received [][]byte
	stopped  bool
}

// NewFakeFNE binds a UDP socket on an ephemeral port and returns the
// double along with the port it bound to.
func NewFakeFNE(salt uint32) (*FakeFNE, int, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		return nil, 0, err
	}
	f := &FakeFNE{conn: conn, salt: salt}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	go f.serve()
	return f, port, nil
}

// NewFakeFNEOnPort binds the double to a specific port, for tests that
// simulate the upstream server coming back on the same address after a
// drop.
func NewFakeFNEOnPort(salt uint32, port int) (*FakeFNE, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port})
	if err != nil {
		return nil, err
	}
	f := &FakeFNE{conn: conn, salt: salt}
	go f.serve()
	return f, nil
}

// Close stops the double and releases its socket.
func (f *FakeFNE) Close() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	f.conn.Close()
}

// ReceivedPayloads returns every P25 payload (LDU1/LDU2/TDU, header
// stripped) the double has received so far, in arrival order.
func (f *FakeFNE) ReceivedPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.received))
	copy(out, f.received)
	return out
}

func (f *FakeFNE) serve() {
	buf := make([]byte, 2048)
	for {
		f.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := f.conn.ReadFromUDP(buf)
		if err != nil {
			f.mu.Lock()
			stopped := f.stopped
			f.mu.Unlock()
			if stopped {
				return
			}
			continue
		}
		f.handle(addr, buf[:n])
	}
}

func (f *FakeFNE) handle(addr *net.UDPAddr, frame []byte) {
	if len(frame) < protocol.OuterHeaderLength {
		return
	}

	fn := frame[18]
	switch fn {
	case protocol.FuncRPTL:
		f.conn.WriteToUDP(f.buildChallengeAck(), addr)
	case protocol.FuncRPTK:
		f.conn.WriteToUDP(f.buildPlainAck(), addr)
	case protocol.FuncRPTC:
		f.conn.WriteToUDP(f.buildPlainAck(), addr)
	case protocol.FuncPing:
		f.conn.WriteToUDP(f.buildPong(), addr)
	case protocol.FuncProtocol:
		payload := append([]byte{}, frame[protocol.OuterHeaderLength:]...)
		f.mu.Lock()
		f.received = append(f.received, payload)
		f.mu.Unlock()
	}
}

func (f *FakeFNE) buildChallengeAck() []byte {
	buf := make([]byte, 42)
	buf[18] = protocol.FuncAck
	buf[38] = byte(f.salt >> 24)
	buf[39] = byte(f.salt >> 16)
	buf[40] = byte(f.salt >> 8)
	buf[41] = byte(f.salt)
	return buf
}

func (f *FakeFNE) buildPlainAck() []byte {
	buf := make([]byte, protocol.OuterHeaderLength+1)
	buf[18] = protocol.FuncAck
	return buf
}

func (f *FakeFNE) buildPong() []byte {
	buf := make([]byte, protocol.OuterHeaderLength)
	buf[18] = protocol.FuncPong
	return buf
}
