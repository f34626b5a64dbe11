package ssdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"

	"github.com/MrSnakeDoc/dialcast/internal/logger"
)

const readBufferSize = 2048

// Config describes what the responder advertises.
type Config struct {
	Port          int    // UDP port, 0 = ephemeral
	Location      string // device descriptor URL
	UDN           string // device uuid, without the "uuid:" prefix
	Server        string // SERVER header value
	JoinMulticast bool   // best-effort join of the SSDP group
}

// Responder answers DIAL M-SEARCH queries with a unicast reply.
type Responder struct {
	cfg    Config
	reply  []byte
	logger logger.Logger

	mu   sync.Mutex
	conn net.PacketConn
	wg   sync.WaitGroup
}

// NewResponder builds a responder. Nothing is bound until Start.
func NewResponder(cfg Config, log logger.Logger) *Responder {
	return &Responder{
		cfg:    cfg,
		reply:  BuildResponse(cfg.Location, cfg.UDN, cfg.Server),
		logger: log,
	}
}

// Start binds the UDP port on all interfaces and runs the receive loop in the background.
func (r *Responder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return errors.New("ssdp responder already started")
	}

	lc := net.ListenConfig{Control: reuseControl(r.logger)}
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", r.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to bind ssdp port %d: %w", r.cfg.Port, err)
	}

	if r.cfg.JoinMulticast {
		r.joinGroup(conn)
	}

	r.conn = conn
	r.wg.Add(1)
	go r.serve(conn)

	r.logger.Info("ssdp responder listening",
		logger.String("addr", conn.LocalAddr().String()),
		logger.String("location", r.cfg.Location))
	return nil
}

// Addr returns the bound address, or nil when not running.
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stop closes the socket, which unblocks the receive loop, and waits for the loop to exit.
// Calling Stop on a responder that is not running is a no-op.
func (r *Responder) Stop() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		r.logger.Debug("ssdp socket close failed", logger.Error(err))
	}
	r.wg.Wait()
	r.logger.Info("ssdp responder stopped")
}

func (r *Responder) serve(conn net.PacketConn) {
	defer r.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				r.logger.Warn("ssdp receive loop ended", logger.Error(err))
			}
			return
		}

		if !IsDIALSearch(buf[:n]) {
			continue
		}

		if _, err := conn.WriteTo(r.reply, addr); err != nil {
			r.logger.Debug("ssdp reply failed",
				logger.String("to", addr.String()),
				logger.Error(err))
			continue
		}
		r.logger.Debug("answered dial search", logger.String("to", addr.String()))
	}
}

// joinGroup subscribes the socket to the SSDP group on every multicast capable
// interface. Replies stay unicast; this only lets searches reach the socket.
func (r *Responder) joinGroup(conn net.PacketConn) {
	ifaces, err := net.Interfaces()
	if err != nil {
		r.logger.Debug("failed to list interfaces for multicast", logger.Error(err))
		return
	}

	pc := ipv4.NewPacketConn(conn)
	group := &net.UDPAddr{IP: net.ParseIP(MulticastAddr)}
	joined := 0
	for i := range ifaces {
		iface := ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pc.JoinGroup(&iface, group); err != nil {
			r.logger.Debug("multicast join failed",
				logger.String("iface", iface.Name),
				logger.Error(err))
			continue
		}
		joined++
	}
	r.logger.Debug("joined ssdp multicast group", logger.Int("interfaces", joined))
}
