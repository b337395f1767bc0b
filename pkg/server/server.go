// Copyright 2023 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	hub "github.com/binkynet/ShiftWorker/pkg/service/status"
)

const (
	// HealthServiceName is the name under which the loopback reports
	// its health, next to the overall ("") service.
	HealthServiceName = "shiftworker"
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
	// Port to listen on for SSH requests, 0 disables SSH
	SSHPort int
	// Port to listen on for GRPC requests
	GRPCPort int
	// Path of the SSH host key, created when missing
	HostKeyPath string
}

// Server runs the HTTP, GRPC and SSH servers for the service.
type Server struct {
	Config
	log    zerolog.Logger
	hub    *hub.Hub
	ui     UI
	health *health.Server
}

// UI builds a Bubble Tea model for an SSH session.
type UI interface {
	Handler(s ssh.Session) (tea.Model, []tea.ProgramOption)
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, h *hub.Hub, ui UI) (*Server, error) {
	if h == nil {
		return nil, errors.WithStack(fmt.Errorf("status hub is not set"))
	}
	if cfg.HostKeyPath == "" {
		cfg.HostKeyPath = ".ssh/id_ed25519"
	}
	return &Server{
		Config: cfg,
		log:    log.With().Str("component", "server").Logger(),
		hub:    h,
		ui:     ui,
		health: health.NewServer(),
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log

	// Prepare HTTP listener
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}
	httpSrv := http.Server{
		Handler: s.newHTTPRouter(),
	}

	// Prepare GRPC listener
	grpcAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.GRPCPort))
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		httpLis.Close()
		return errors.Wrapf(err, "failed to listen on address %s", grpcAddr)
	}
	grpcSrv := s.newGRPCServer()

	// Prepare SSH server
	var sshServer *ssh.Server
	sshAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.SSHPort))
	if s.SSHPort != 0 && s.ui != nil {
		sshServer, err = wish.NewServer(
			wish.WithAddress(sshAddr),
			wish.WithHostKeyPath(s.HostKeyPath),
			// The last item in the chain is the first to be called.
			wish.WithMiddleware(
				bubbletea.Middleware(s.ui.Handler),
				activeterm.Middleware(),
				logging.Middleware(),
			),
		)
		if err != nil {
			httpLis.Close()
			grpcLis.Close()
			return fmt.Errorf("could not start SSH server: %w", err)
		}
	}

	// Follow loopback state
	notify, err := s.hub.Notify()
	if err != nil {
		httpLis.Close()
		grpcLis.Close()
		return errors.WithStack(err)
	}
	s.updateHealth(s.hub.Snapshot())
	go func() {
		for {
			select {
			case <-notify:
				s.updateHealth(s.hub.Snapshot())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Serve apis
	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()
	log.Debug().Str("address", grpcAddr).Msg("Serving GRPC")
	go func() {
		if err := grpcSrv.Serve(grpcLis); err != nil {
			log.Fatal().Err(err).Msg("failed to serve GRPC server")
		}
		log.Debug().Str("address", grpcAddr).Msg("Done Serving GRPC")
	}()
	if sshServer != nil {
		log.Debug().Str("address", sshAddr).Msg("Serving SSH")
		go func() {
			if err := sshServer.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				log.Fatal().Err(err).Msg("failed to serve SSH server")
			}
			log.Debug().Str("address", sshAddr).Msg("Done Serving SSH")
		}()
	}

	// Wait until context closed
	<-ctx.Done()

	log.Info().Msg("Closing servers")
	s.health.Shutdown()
	httpSrv.Shutdown(context.Background())
	grpcSrv.GracefulStop()
	if sshServer != nil {
		sshServer.Shutdown(context.Background())
	}

	return nil
}

// newHTTPRouter builds the HTTP routes.
func (s *Server) newHTTPRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/status", s.statusHandler)
	e.GET("/health", s.healthHandler)
	e.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	return e
}

// newGRPCServer builds a GRPC server offering the health service.
func (s *Server) newGRPCServer() *grpc.Server {
	recoveryOpt := grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
		s.log.Error().Interface("panic", p).Msg("Recovered from panic in GRPC handler")
		return status.Errorf(codes.Internal, "internal error")
	})
	grpcSrv := grpc.NewServer(
		grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
			grpc_prometheus.StreamServerInterceptor,
			grpc_recovery.StreamServerInterceptor(recoveryOpt),
		)),
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_prometheus.UnaryServerInterceptor,
			grpc_recovery.UnaryServerInterceptor(recoveryOpt),
		)),
	)
	healthpb.RegisterHealthServer(grpcSrv, s.health)
	grpc_prometheus.Register(grpcSrv)
	// Register reflection service on gRPC server.
	reflection.Register(grpcSrv)
	return grpcSrv
}

// statusHandler returns the latest loopback snapshot.
func (s *Server) statusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.hub.Snapshot())
}

// healthHandler returns OK while the loopback is running.
func (s *Server) healthHandler(c echo.Context) error {
	snap := s.hub.Snapshot()
	if healthStatus(snap) != healthpb.HealthCheckResponse_SERVING {
		msg := "NOT RUNNING"
		if snap.Fault != "" {
			msg = snap.Fault
		}
		return c.String(http.StatusServiceUnavailable, msg)
	}
	return c.String(http.StatusOK, "OK")
}

// updateHealth sets the GRPC health status from the given snapshot.
func (s *Server) updateHealth(snap hub.Snapshot) {
	st := healthStatus(snap)
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(HealthServiceName, st)
}

// healthStatus converts a snapshot into a GRPC health status.
func healthStatus(snap hub.Snapshot) healthpb.HealthCheckResponse_ServingStatus {
	if snap.Running() {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
