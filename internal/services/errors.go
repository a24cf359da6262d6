package services

import (
	"errors"
	"fmt"

	"controltower/internal/models"
)

// ensureUnavailable classifies an adapter error that carries no sentinel as a backend failure
func ensureUnavailable(err error) error {
	if err == nil || errors.Is(err, models.ErrBackendUnavailable) || errors.Is(err, models.ErrMalformedInput) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
}
