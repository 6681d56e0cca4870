package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// Listener binds one configured address and serves the gateway handler on
// it, with optional TLS termination.
type Listener struct {
	cfg            config.ListenerConfig
	handler        http.Handler
	logger         observability.Logger
	maxHeaderBytes int

	server    *http.Server
	boundAddr string
	running   atomic.Bool
}

// ListenerOption is a functional option for configuring a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// WithListenerMaxHeaderBytes sets the request header size limit.
func WithListenerMaxHeaderBytes(n int) ListenerOption {
	return func(l *Listener) {
		if n > 0 {
			l.maxHeaderBytes = n
		}
	}
}

// NewListener creates a listener serving the given handler.
func NewListener(
	cfg config.ListenerConfig,
	handler http.Handler,
	opts ...ListenerOption,
) (*Listener, error) {
	if handler == nil {
		return nil, errors.New("listener handler is required")
	}

	l := &Listener{
		cfg:            cfg,
		handler:        handler,
		logger:         observability.NopLogger(),
		maxHeaderBytes: config.DefaultMaxHeaderSize,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.cfg.Name
}

// Addr returns the configured bind address.
func (l *Listener) Addr() string {
	return l.cfg.Addr()
}

// BoundAddr returns the address the listener actually bound, which differs
// from Addr when the configured port is 0.
func (l *Listener) BoundAddr() string {
	return l.boundAddr
}

// IsRunning reports whether the listener is serving.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}

// Start binds the address and begins serving in the background. The context
// applies to listener setup only.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("listener %s is already running", l.cfg.Name)
	}

	tlsConfig, err := serverTLSConfig(l.cfg.TLS)
	if err != nil {
		return fmt.Errorf("listener %s: %w", l.cfg.Name, err)
	}

	l.server = &http.Server{
		Handler:           l.handler,
		ReadTimeout:       l.cfg.Timeouts.GetEffectiveReadTimeout(),
		ReadHeaderTimeout: l.cfg.Timeouts.GetEffectiveReadHeaderTimeout(),
		WriteTimeout:      l.cfg.Timeouts.GetEffectiveWriteTimeout(),
		IdleTimeout:       l.cfg.Timeouts.GetEffectiveIdleTimeout(),
		MaxHeaderBytes:    l.maxHeaderBytes,
		TLSConfig:         tlsConfig,
	}

	addr := l.cfg.Addr()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	l.boundAddr = ln.Addr().String()
	l.running.Store(true)

	l.logger.Info("listener started",
		observability.String("name", l.cfg.Name),
		observability.String("address", l.boundAddr),
		observability.Bool("tls", l.cfg.TLS != nil),
	)

	go l.serve(ln)

	return nil
}

// serve blocks until the server closes.
func (l *Listener) serve(ln net.Listener) {
	var err error
	if l.cfg.TLS != nil {
		err = l.server.ServeTLS(ln, l.cfg.TLS.CertFile, l.cfg.TLS.KeyFile)
	} else {
		err = l.server.Serve(ln)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error",
			observability.String("name", l.cfg.Name),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Stop drains the listener gracefully, falling back to a hard close when
// the context expires first.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener",
		observability.String("name", l.cfg.Name),
	)

	if err := l.server.Shutdown(ctx); err != nil {
		if closeErr := l.server.Close(); closeErr != nil {
			return fmt.Errorf("close listener: %w", closeErr)
		}
		return fmt.Errorf("shutdown listener: %w", err)
	}

	l.running.Store(false)

	l.logger.Info("listener stopped",
		observability.String("name", l.cfg.Name),
	)

	return nil
}

// serverTLSConfig builds the TLS settings for a listener. The certificate
// pair is loaded by ServeTLS from the configured files.
func serverTLSConfig(cfg *config.ListenerTLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, nil //nolint:nilnil // nil config means plain HTTP
	}

	var minVersion uint16
	switch cfg.MinVersion {
	case "", "TLS12":
		minVersion = tls.VersionTLS12
	case "TLS13":
		minVersion = tls.VersionTLS13
	default:
		return nil, fmt.Errorf("unsupported TLS minimum version: %s", cfg.MinVersion)
	}

	return &tls.Config{MinVersion: minVersion}, nil
}
