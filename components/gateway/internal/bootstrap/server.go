// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/LerianStudio/lib-commons/v3/commons/log"
	libOtel "github.com/LerianStudio/lib-commons/v3/commons/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// Server represents the http server for the gateway.
type Server struct {
	app             *fiber.App
	serverAddress   string
	logger          log.Logger
	telemetry       *libOtel.Telemetry
	shutdownTimeout time.Duration
	signals         chan os.Signal
}

// ServerAddress returns is a convenience method to return the server address.
func (s *Server) ServerAddress() string {
	return s.serverAddress
}

// NewServer creates an instance of Server.
func NewServer(cfg *Config, app *fiber.App, logger log.Logger, telemetry *libOtel.Telemetry) *Server {
	return &Server{
		app:             app,
		serverAddress:   cfg.ServerAddress,
		logger:          logger,
		telemetry:       telemetry,
		shutdownTimeout: constant.ServerShutdownTimeout,
		signals:         make(chan os.Signal, 1),
	}
}

// Run listens until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run(_ *libCommons.Launcher) error {
	signal.Notify(s.signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.signals)

	listenErr := make(chan error, 1)

	go func() {
		s.logger.Infof("Gateway listening on %s", s.ServerAddress())

		listenErr <- s.app.Listen(s.ServerAddress())
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return errors.Wrap(err, "http server stopped")
		}

		return nil
	case sig := <-s.signals:
		s.logger.Infof("Received %s, shutting down HTTP server...", sig)
	}

	if err := s.app.ShutdownWithTimeout(s.shutdownTimeout); err != nil {
		s.logger.Errorf("HTTP server shutdown error: %v", err)

		return errors.Wrap(err, "http server shutdown")
	}

	s.logger.Info("HTTP server stopped")

	return nil
}
