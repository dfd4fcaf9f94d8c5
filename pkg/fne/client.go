// Package fne implements the peer-side DVM/FNE session: the
// handshake, heartbeat, and voice-stream framing a gateway uses to
// register with and relay P25 traffic to an upstream network server.
package fne

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hambridge/p25gw/pkg/logger"
	"github.com/hambridge/p25gw/pkg/protocol"
)

// ConnectionCallback is notified whenever the session transitions
// between connected and disconnected.
type ConnectionCallback func(connected bool)

// Config holds the identity and transport parameters a Client
// presents to the upstream server during the handshake.
type Config struct {
	Host     string
	Port     int
	PeerID   uint32
	Password string

	Identity    string
	SoftwareID  string
	WACN        uint32
	SystemID    uint16
	RXFrequency int
	TXFrequency int
	TXPower     int
	Latitude    float64
	Longitude   float64

	ReconnectInterval time.Duration
	AutoReconnect     bool
}

// Client owns one UDP session to an upstream P25 network server,
// including authentication, heartbeats, and voice-frame relay.
type Client struct {
	cfg Config
	log *logger.Logger

	mu        sync.Mutex
	conn      *net.UDPConn
	connected bool
	counters  protocol.Counters
	streamID  uint32

	sendMu sync.Mutex

	onConnectionChange ConnectionCallback

	cancelSession context.CancelFunc
	sessionWG     sync.WaitGroup
}

// New creates a Client. Call Run to drive the connect/reconnect
// supervisor; the client does nothing until Run is called.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		log: log.WithComponent("fne"),
	}
}

// SetConnectionCallback registers a callback invoked on every
// connect/disconnect transition. Must be called before Run.
func (c *Client) SetConnectionCallback(cb ConnectionCallback) {
	c.onConnectionChange = cb
}

// IsConnected reports whether the session is currently authenticated
// and able to send.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Run drives the connect/reconnect supervisor until ctx is cancelled.
// If AutoReconnect is false, Run attempts a single connection, then
// blocks until ctx is cancelled, disconnects, and returns the error of
// that one attempt (nil if it succeeded).
func (c *Client) Run(ctx context.Context) error {
	if !c.cfg.AutoReconnect {
		err := c.connect(ctx)
		<-ctx.Done()
		c.disconnect()
		return err
	}

	for {
		if !c.IsConnected() {
			c.log.Info("attempting connection")
			if err := c.connect(ctx); err != nil {
				c.log.Warn("connection failed, will retry",
					logger.Error(err), logger.Int("retry_seconds", int(c.cfg.ReconnectInterval/time.Second)))
			} else {
				c.log.Info("connected successfully")
			}
		}

		select {
		case <-ctx.Done():
			c.disconnect()
			return nil
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

// connect dials the upstream server, runs the authentication
// handshake, and on success starts the ping and receive loops tied to
// a child context cancelled on disconnect or parent cancellation.
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Join the previous session's ping/receive goroutines before
	// opening a new socket, so a torn-down session can never linger
	// and send duplicate frames on the connection this call is about
	// to establish. A no-op on the first connect, since the
	// WaitGroup starts at zero.
	c.sessionWG.Wait()

	c.log.Info("connecting", logger.String("host", c.cfg.Host), logger.Int("port", c.cfg.Port))

	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port)))
	if err != nil {
		return fmt.Errorf("fne: failed to resolve %s: %w", c.cfg.Host, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("fne: failed to dial %s: %w", c.cfg.Host, err)
	}

	if err := c.authenticate(conn); err != nil {
		conn.Close()
		return fmt.Errorf("fne: authentication failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	c.cancelSession = cancel

	c.sessionWG.Add(2)
	go c.pingLoop(sessionCtx)
	go c.receiveLoop(sessionCtx)

	if c.onConnectionChange != nil {
		c.onConnectionChange(true)
	}

	return nil
}

func (c *Client) disconnect() {
	c.mu.Lock()
	wasConnected := c.connected
	conn := c.conn
	cancel := c.cancelSession
	c.connected = false
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	c.sessionWG.Wait()

	if wasConnected {
		c.log.Info("disconnected")
		if c.onConnectionChange != nil {
			c.onConnectionChange(false)
		}
	}
}

// authenticate runs the RPTL/RPTK/RPTC handshake over conn, expecting
// an ACK within 5 seconds at each step.
func (c *Client) authenticate(conn *net.UDPConn) error {
	loginStreamID, err := protocol.RandomStreamID()
	if err != nil {
		return err
	}

	if err := c.writeFrame(conn, func() []byte {
		return protocol.BuildRPTL(&c.counters, loginStreamID, c.cfg.PeerID)
	}); err != nil {
		return err
	}

	response, err := readFrameWithDeadline(conn, 5*time.Second)
	if err != nil {
		return fmt.Errorf("timeout waiting for challenge: %w", err)
	}
	if !protocol.IsAck(response) {
		return fmt.Errorf("login rejected")
	}
	salt, ok := protocol.ExtractSalt(response)
	if !ok {
		return fmt.Errorf("challenge response too short to carry a salt")
	}

	digest := saltedDigest(salt, c.cfg.Password)
	if err := c.writeFrame(conn, func() []byte {
		return protocol.BuildRPTK(&c.counters, loginStreamID, c.cfg.PeerID, digest)
	}); err != nil {
		return err
	}

	response, err = readFrameWithDeadline(conn, 5*time.Second)
	if err != nil {
		return fmt.Errorf("timeout waiting for auth ack: %w", err)
	}
	if !protocol.IsAck(response) {
		return fmt.Errorf("auth rejected")
	}

	c.log.Info("auth successful, sending config")

	configJSON, err := c.buildConfigJSON()
	if err != nil {
		return fmt.Errorf("failed to build peer config: %w", err)
	}
	if err := c.writeFrame(conn, func() []byte {
		return protocol.BuildRPTC(&c.counters, loginStreamID, c.cfg.PeerID, configJSON)
	}); err != nil {
		return err
	}

	response, err = readFrameWithDeadline(conn, 5*time.Second)
	if err != nil {
		return fmt.Errorf("timeout waiting for config ack: %w", err)
	}
	if !protocol.IsAck(response) {
		return fmt.Errorf("config rejected")
	}

	return nil
}

type peerConfigInfo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type peerConfigChannel struct {
	TXPower int `json:"txPower"`
}

type peerConfig struct {
	Identity    string            `json:"identity"`
	RXFrequency int               `json:"rxFrequency"`
	TXFrequency int               `json:"txFrequency"`
	Info        peerConfigInfo    `json:"info"`
	Channel     peerConfigChannel `json:"channel"`
	Software    string            `json:"software"`
}

func (c *Client) buildConfigJSON() ([]byte, error) {
	cfg := peerConfig{
		Identity:    c.cfg.Identity,
		RXFrequency: c.cfg.RXFrequency,
		TXFrequency: c.cfg.TXFrequency,
		Info:        peerConfigInfo{Latitude: c.cfg.Latitude, Longitude: c.cfg.Longitude},
		Channel:     peerConfigChannel{TXPower: c.cfg.TXPower},
		Software:    c.cfg.SoftwareID,
	}
	return json.Marshal(cfg)
}

func saltedDigest(salt uint32, password string) [32]byte {
	data := make([]byte, 4+len(password))
	binary.BigEndian.PutUint32(data, salt)
	copy(data[4:], password)
	return sha256.Sum256(data)
}

func (c *Client) pingLoop(ctx context.Context) {
	defer c.sessionWG.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingStreamID, err := protocol.RandomStreamID()
			if err != nil {
				continue
			}
			c.sendLocked(func() []byte {
				return protocol.BuildPing(&c.counters, pingStreamID, c.cfg.PeerID)
			})
		}
	}
}

func (c *Client) receiveLoop(ctx context.Context) {
	defer c.sessionWG.Done()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, err := conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
				c.log.Error("connection lost", logger.Error(err))
				c.markDisconnected()
				return
			}
		}

		if protocol.IsPong(buf[:n]) {
			c.log.Debug("received pong")
			continue
		}
		c.log.Debug("received unhandled frame", logger.Int("len", n))
	}
}

// markDisconnected tears down the dead session: it cancels the session
// context so pingLoop stops rather than leaking, and closes the
// socket so the fd isn't held open until the next reconnect. It must
// not wait on sessionWG itself, since it runs on the receiveLoop
// goroutine that is itself a member of that group; connect joins the
// group before starting the next session instead.
func (c *Client) markDisconnected() {
	c.mu.Lock()
	wasConnected := c.connected
	conn := c.conn
	cancel := c.cancelSession
	c.connected = false
	c.conn = nil
	c.cancelSession = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	if wasConnected && c.onConnectionChange != nil {
		c.onConnectionChange(false)
	}
}

// writeFrame builds and sends a frame under the send mutex, so the
// header build's read-modify-write of the sequence/timestamp counters
// and the write to the wire happen as one atomic step.
func (c *Client) writeFrame(conn *net.UDPConn, build func() []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	frame := build()
	n, err := conn.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short write: sent %d of %d bytes", n, len(frame))
	}
	return nil
}

func (c *Client) sendLocked(build func() []byte) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return false
	}
	return c.writeFrame(conn, build) == nil
}

// StartStream begins a new voice stream for src/dst under the given
// stream id and sends a grant-demand TDU to trigger a control channel
// announcement upstream.
func (c *Client) StartStream(streamID, srcID, dstID uint32) {
	c.mu.Lock()
	c.streamID = streamID
	c.mu.Unlock()

	c.log.Info("starting voice stream",
		logger.Uint32("src", srcID), logger.Uint32("dst", dstID), logger.Uint32("stream_id", streamID))

	c.sendTDU(srcID, dstID, true)
}

// EndStream terminates the current voice stream.
func (c *Client) EndStream(srcID, dstID uint32) {
	c.log.Info("ending voice stream")
	c.sendTDU(srcID, dstID, false)
}

// SendLDU1 relays a completed LDU1 superframe upstream.
func (c *Client) SendLDU1(voice protocol.VoiceGroup, srcID, dstID uint32, firstLDU bool) {
	if !c.IsConnected() {
		return
	}
	ldu := protocol.BuildLDU1(voice, srcID, dstID, c.cfg.WACN, c.cfg.SystemID, firstLDU)
	c.sendP25Payload(ldu, false)
	c.log.Debug("sent LDU1")
}

// SendLDU2 relays a completed LDU2 superframe upstream.
func (c *Client) SendLDU2(voice protocol.VoiceGroup, srcID, dstID uint32) {
	if !c.IsConnected() {
		return
	}
	ldu := protocol.BuildLDU2(voice, srcID, dstID, c.cfg.WACN, c.cfg.SystemID)
	c.sendP25Payload(ldu, false)
	c.log.Debug("sent LDU2")
}

func (c *Client) sendTDU(srcID, dstID uint32, grantDemand bool) {
	if !c.IsConnected() {
		return
	}
	tdu := protocol.BuildTDU(srcID, dstID, c.cfg.WACN, c.cfg.SystemID, grantDemand)
	c.sendP25Payload(tdu, !grantDemand)
	if grantDemand {
		c.log.Debug("sent TDU with grant demand")
	} else {
		c.log.Debug("sent TDU (call termination)")
	}
}

func (c *Client) sendP25Payload(payload []byte, endOfCall bool) {
	c.mu.Lock()
	streamID := c.streamID
	c.mu.Unlock()

	c.sendLocked(func() []byte {
		header := protocol.BuildOuterHeader(&c.counters, protocol.FuncProtocol, protocol.SubFuncP25,
			streamID, c.cfg.PeerID, len(payload), endOfCall)
		frame := append(header, payload...)
		protocol.InsertCRC(frame)
		return frame
	})
}

func readFrameWithDeadline(conn *net.UDPConn, timeout time.Duration) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
