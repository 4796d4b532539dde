package agstream

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/agstream/httpapi"
	"pkt.systems/pslog"
)

// Server runs the reference chat server in the background.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the reference server.
type ServerConfig struct {
	HTTP httpapi.Config
}

// ServerDeps captures optional server dependencies.
type ServerDeps struct {
	Responder httpapi.Responder
}

// NewServer constructs a reference server.
func NewServer(cfg ServerConfig, deps ServerDeps) (Server, error) {
	if cfg.HTTP.Addr == "" {
		return nil, errors.New("listen address is required")
	}
	var opts []httpapi.Option
	if deps.Responder != nil {
		opts = append(opts, httpapi.WithResponder(deps.Responder))
	}
	return &mockServer{
		cfg:     cfg,
		httpSrv: httpapi.NewServer(cfg.HTTP, opts...),
	}, nil
}

type mockServer struct {
	cfg     ServerConfig
	httpSrv *httpapi.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	done    chan struct{}
	started bool
}

func (s *mockServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.done = make(chan struct{})
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info("server start",
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"delay_ms", s.cfg.HTTP.Delay.Milliseconds(),
		"store", s.cfg.HTTP.StorePath,
	)
	go func() {
		defer close(s.done)
		if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
			log.Error("http server failed", "err", err)
			s.errCh <- err
		}
	}()
	return nil
}

func (s *mockServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		pslog.Ctx(ctx).Error("server stopped", "err", err)
		_ = s.Stop(context.Background())
		return err
	}
}

func (s *mockServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	done := s.done
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	log.Info("server stop requested")
	cancel()
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		log.Info("server stopped")
		return nil
	}
}
