package dial

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/dialcast/internal/cast"
	"github.com/MrSnakeDoc/dialcast/internal/config"
	"github.com/MrSnakeDoc/dialcast/internal/events"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/dialcast/internal/logger"
	"github.com/MrSnakeDoc/dialcast/internal/pairing"
	"github.com/MrSnakeDoc/dialcast/internal/playback"
	"github.com/MrSnakeDoc/dialcast/internal/ssdp"
	"github.com/MrSnakeDoc/dialcast/internal/utils"
	"github.com/MrSnakeDoc/dialcast/internal/version"
)

// rollbackTimeout bounds the HTTP shutdown when discovery fails to start.
const rollbackTimeout = 2 * time.Second

// Options carries the collaborators a Service can be given instead of the defaults.
type Options struct {
	Sink    playback.Sink    // nil => Mopidy JSON-RPC client on cfg.RPCURL
	Events  events.Publisher // nil => events.Nop
	Random  io.Reader        // pairing code entropy when cfg.PairingCode is empty, nil => crypto/rand
	TimeNow func() time.Time // nil => time.Now
}

// Service owns the HTTP control surface and the SSDP responder.
type Service struct {
	cfg     *config.Config
	logger  logger.Logger
	udn     string
	pairing pairing.Code
	app     *cast.Application
	events  events.Publisher
	timeNow func() time.Time

	mu        sync.Mutex
	appURL    string
	port      int
	http      *httpserver.Server
	served    chan struct{}
	responder *ssdp.Responder
}

// New prepares a Service. Nothing is bound until Start.
func New(cfg *config.Config, log logger.Logger, opts Options) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("dial: nil config")
	}

	code, err := pairingCode(cfg.PairingCode, opts.Random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pairing code: %w", err)
	}

	sink := opts.Sink
	if sink == nil {
		sink = playback.NewMopidyClient(cfg.RPCURL, cfg.PlaybackTimeout, log.Named("mopidy"))
	}

	pub := opts.Events
	if pub == nil {
		pub = events.Nop{}
	}

	return &Service{
		cfg:     cfg,
		logger:  log,
		udn:     uuid.NewString(),
		pairing: code,
		app:     cast.NewApplication(cfg.AppName, sink),
		events:  pub,
		timeNow: opts.TimeNow,
	}, nil
}

func pairingCode(fixed string, random io.Reader) (pairing.Code, error) {
	if fixed != "" {
		return pairing.New(fixed), nil
	}
	if random == nil {
		random = rand.Reader
	}
	return pairing.GenerateFrom(random)
}

// Start binds the HTTP listener, serves it in the background, then starts
// discovery with a location built from the port actually bound.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return errors.New("dial service already started")
	}

	var lc net.ListenConfig
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind http listener on %s: %w", addr, err)
	}

	port := ln.Addr().(*net.TCPAddr).Port
	host := utils.AdvertiseHost(s.cfg.AdvertiseHost, s.cfg.Host)
	appURL := "http://" + net.JoinHostPort(host, strconv.Itoa(port))

	d := deps.Deps{
		Logger:             s.logger,
		TimeNow:            s.timeNow,
		FriendlyName:       s.cfg.FriendlyName,
		ApplicationURL:     appURL,
		UDN:                s.udn,
		App:                s.app,
		Pairing:            s.pairing,
		RequirePairingCode: s.cfg.RequirePairingCode,
		Events:             s.events,
		AllowedCIDRS:       s.cfg.AllowedCIDRS,
		TrustProxy:         s.cfg.TrustProxy,
		LaunchBurst:        s.cfg.LaunchBurst,
		LaunchRefillPerMin: s.cfg.LaunchRefillPerMin,
	}

	srv := httpserver.New(s.logger.Named("http"), d)
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(ln); err != nil {
			s.logger.Error("http server stopped unexpectedly", logger.Error(err))
		}
	}()

	responder := ssdp.NewResponder(ssdp.Config{
		Port:          s.cfg.SSDPPort,
		Location:      appURL + handlers.DescriptorPath,
		UDN:           s.udn,
		Server:        version.SSDPServer(),
		JoinMulticast: s.cfg.JoinMulticast,
	}, s.logger.Named("ssdp"))

	if err := responder.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if stopErr := srv.Stop(stopCtx); stopErr != nil {
			s.logger.Warn("failed to stop http server after discovery error", logger.Error(stopErr))
		}
		<-served
		return err
	}

	s.appURL = appURL
	s.port = port
	s.http = srv
	s.served = served
	s.responder = responder

	s.logger.Info("dial service started",
		logger.String("application_url", appURL),
		logger.String("app", s.app.Name()),
		logger.String("udn", s.udn))
	return nil
}

// Stop shuts the HTTP server down, waits for its accept loop, then stops
// discovery. Stopping a service that never started is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, served, responder := s.http, s.served, s.responder
	s.http, s.served, s.responder = nil, nil, nil
	s.mu.Unlock()

	var err error
	if srv != nil {
		if stopErr := srv.Stop(ctx); stopErr != nil {
			err = fmt.Errorf("failed to stop http server: %w", stopErr)
		}
		<-served
	}
	if responder != nil {
		responder.Stop()
	}
	return err
}

// ApplicationURL is the base URL advertised to clients, empty before Start.
func (s *Service) ApplicationURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appURL
}

// Port is the bound HTTP port, 0 before Start.
func (s *Service) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// SSDPAddr is the bound discovery address, nil when not running.
func (s *Service) SSDPAddr() net.Addr {
	s.mu.Lock()
	responder := s.responder
	s.mu.Unlock()
	if responder == nil {
		return nil
	}
	return responder.Addr()
}

func (s *Service) Pairing() pairing.Code { return s.pairing }

func (s *Service) App() *cast.Application { return s.app }

func (s *Service) UDN() string { return s.udn }
