// Package server exposes the agent protocol over HTTP: registration and
// heartbeat endpoints for the agents, plus health and metrics for
// operators.
package server

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otterc/incubator-slider/internal/agent"
	"github.com/otterc/incubator-slider/pkg/logging"
)

// Server binds the coordinator to its HTTP surface.
type Server struct {
	coordinator *agent.Coordinator
	app         *fiber.App
	addr        string
}

// New builds the HTTP server. The metrics endpoint serves the given
// gatherer, normally the same registry the coordinator metrics live in.
func New(coordinator *agent.Coordinator, gatherer prometheus.Gatherer, host string, port int) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "slider-agent-server",
		DisableStartupMessage: true,
	})

	s := &Server{
		coordinator: coordinator,
		app:         app,
		addr:        fmt.Sprintf("%s:%d", host, port),
	}

	app.Post("/ws/v1/slider/agents/:label/register", s.handleRegister)
	app.Post("/ws/v1/slider/agents/:label/heartbeat", s.handleHeartbeat)
	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return s
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var registration agent.Register
	if err := c.BodyParser(&registration); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed registration payload")
	}
	if registration.Label == "" {
		registration.Label = c.Params("label")
	}
	return c.JSON(s.coordinator.HandleRegistration(&registration))
}

func (s *Server) handleHeartbeat(c *fiber.Ctx) error {
	var heartbeat agent.HeartBeat
	if err := c.BodyParser(&heartbeat); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed heartbeat payload")
	}
	if heartbeat.HostnameLabel == "" {
		heartbeat.HostnameLabel = c.Params("label")
	}
	return c.JSON(s.coordinator.HandleHeartbeat(&heartbeat))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"instances": s.coordinator.Instances().Len(),
	})
}

// Listen serves until the context is cancelled or the listener fails.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "Agent API listening on %s", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Server", "Shutting down agent API")
		return s.app.Shutdown()
	case err := <-errCh:
		return err
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
