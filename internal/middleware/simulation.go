package middleware

import (
	"log/slog"

	"controltower/internal/logging"
	"controltower/internal/mode"

	"github.com/gofiber/fiber/v2"
)

const (
	simulationKey = "simulation"
	requestIDKey  = "requestid" // set by fiber's requestid middleware
)

// SimulationMode parses the X-Simulation-Mode header once per request
func SimulationMode() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(simulationKey, mode.FromHeader(c.Get(mode.HeaderName)))
		return c.Next()
	}
}

// IsSimulation reports the flag stored by SimulationMode; unset means live
func IsSimulation(c *fiber.Ctx) bool {
	on, _ := c.Locals(simulationKey).(bool)
	return on
}

// RequestID returns the id assigned by the requestid middleware, if any
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// Logger returns a request-scoped logger
func Logger(c *fiber.Ctx) *slog.Logger {
	return logging.WithRequest(RequestID(c), IsSimulation(c))
}
