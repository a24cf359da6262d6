package handlers

import (
	"errors"

	"controltower/internal/models"

	"github.com/gofiber/fiber/v2"
)

// retrievalError maps a retrieval failure to its envelope.
// Malformed input is a 400; anything else degrades to a 200 with no results.
func retrievalError(c *fiber.Ctx, err error) error {
	status := fiber.StatusOK
	if errors.Is(err, models.ErrMalformedInput) {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": err.Error(),
		"results": []interface{}{},
	})
}

// badRequest rejects an action call
func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}
