package services

import (
	"errors"

	"schoolhub/internal/core/domain"
	"schoolhub/internal/pkg/metrics"

	"gorm.io/gorm"
)

// notFound maps a missing row to the entity's not-found error
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// constraint maps duplicate key and foreign key failures to the domain taxonomy
func constraint(err error, duplicate error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.ErrConstraintViolation
	}
	return err
}

// outcome labels an operation result for metrics
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrBookUnavailable),
		errors.Is(err, domain.ErrConstraintViolation):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
