package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookrental/internal/domain"
	"bookrental/internal/repositories"
)

// orNotFound replaces a repository miss with the given domain sentinel.
func orNotFound(err, sentinel error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return sentinel
	}
	return err
}

// errContention is returned when a transaction kept losing its stock write to
// concurrent writers until the retry budget ran out.
var errContention = fmt.Errorf("%w: too many concurrent updates, try again", domain.ErrConflict)

// failure logs a failed operation and returns the error the caller sees:
// domain errors pass through unchanged, anything else becomes a store failure.
func failure(log *slog.Logger, op string, err error, attrs ...any) error {
	if errors.Is(err, repositories.ErrConflict) {
		err = errContention
	}
	if domain.IsDomainError(err) {
		log.Warn(op+" rejected", append(attrs, "err", err)...)
		return err
	}
	log.Error(op+" failed", append(attrs, "err", err)...)
	return domain.StoreFailure(op, err)
}

// validationError turns validator output into an ErrValidation naming every
// offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(parts, "; "))
}
