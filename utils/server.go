package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = DefaultReadTimeout
	DefaultShutdownTimeout = 30 * time.Second
)

// Server serves HTTP until its context is cancelled, then drains in-flight
// requests for at most ShutdownTimeout.
type Server struct {
	*http.Server

	CertFile        string
	KeyFile         string
	ShutdownTimeout time.Duration
}

// NewServer creates a Server with the default timeouts.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// WithTLS makes Run serve HTTPS with the given key pair. It is a no-op unless both are set.
func (srv *Server) WithTLS(certFile, keyFile string) *Server {
	if certFile != "" && keyFile != "" {
		srv.CertFile, srv.KeyFile = certFile, keyFile
	}
	return srv
}

// Run listens on srv.Addr and blocks until ctx is done or serving fails.
func (srv *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return srv.serve(ctx, ln)
}

func (srv *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if srv.CertFile != "" {
			err = srv.ServeTLS(ln, srv.CertFile, srv.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		errCh <- err
	}()
	Logger.Info("http server listening", zap.String("addr", ln.Addr().String()), zap.Bool("tls", srv.CertFile != ""))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	Logger.Info("shutting down http server", zap.Duration("timeout", srv.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Logger.Error("http server shutdown", zap.Error(err))
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	Logger.Info("http server stopped")
	return nil
}
