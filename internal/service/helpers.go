package service

import (
	"context"
	"errors"

	"github.com/noah-isme/sims-api/internal/repository"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

func internalError(err error, message string) error {
	if errors.Is(err, repository.ErrConflict) {
		return conflictError(err)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func conflictError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "concurrent update, retry the request")
}

// lookupError maps a repository miss to NOT_FOUND and anything else to INTERNAL_ERROR.
func lookupError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return internalError(err, "failed to load "+what)
}

func transactorOrNoop(tx repository.Transactor) repository.Transactor {
	if tx == nil {
		tx = repository.NoopTransactor{}
	}
	return unitOfWork{tx: tx}
}

// unitOfWork turns begin and commit failures into domain errors. Errors
// raised inside fn already are.
type unitOfWork struct {
	tx repository.Transactor
}

func (u unitOfWork) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	err := u.tx.Run(ctx, fn)
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return internalError(err, "transaction failed")
}

func cacheOrDisabled(c resultCache) resultCache {
	if c == nil {
		return (*CacheService)(nil)
	}
	return c
}

type enrollmentMetrics interface {
	RecordEnrollmentOperation(operation, result string)
}

type violationGauge interface {
	SetLinkViolations(count int)
}

// operationResult classifies err into an enrollment_operations_total result label.
func operationResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case appErrors.Is(err, appErrors.ErrNotFound):
		return ResultNotFound
	case appErrors.Is(err, appErrors.ErrAlreadyEnrolled), appErrors.Is(err, appErrors.ErrNotEnrolled),
		appErrors.Is(err, appErrors.ErrConflict):
		return ResultConflict
	}
	return ResultError
}
