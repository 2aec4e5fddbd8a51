package handler

import (
	"errors"
	"fmt"

	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/internal/service"
	"github.com/forgo/saga/onboarding/internal/wizard"
)

// MapServiceError converts a service or wizard error to a problem response
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	var missing *wizard.MissingFieldsError
	if errors.As(err, &missing) {
		return model.NewIncompleteError(missing.Fields, missing.Invalid...)
	}

	switch {
	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrSessionForbidden):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrSessionNotFound):
		return model.NewNotFoundError("onboarding session")
	case errors.Is(err, service.ErrProfileNotFound):
		return model.NewNotFoundError("onboarding profile")
	case errors.Is(err, wizard.ErrUnknownStep):
		return model.NewNotFoundError("step")

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrSubmissionInProgress):
		return model.NewConflictError(err.Error())

	// ===== Limit Errors → 422 =====
	case errors.Is(err, wizard.ErrSelectionLimit):
		return model.NewLimitExceededError(
			fmt.Sprintf("You can pick up to %d goals.", wizard.MaxGoals), wizard.MaxGoals)
	case errors.Is(err, wizard.ErrElevationLimit):
		return model.NewLimitExceededError(
			fmt.Sprintf("You can rate up to %d interests above the minimum.", wizard.MaxElevatedInterests), wizard.MaxElevatedInterests)

	// ===== Validation Errors → 422 =====
	case errors.Is(err, wizard.ErrAnswerKind),
		errors.Is(err, wizard.ErrUnknownOption),
		errors.Is(err, wizard.ErrRatingRange),
		errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, wizard.ErrCorruptSnapshot):
		return model.NewValidationError(err.Error())

	// ===== Upstream Errors → 502 =====
	case errors.Is(err, service.ErrSubmissionFailed):
		return model.NewBadGatewayError("We couldn't save your profile. Please try again.")

	// ===== Internal Errors → 500 =====
	case errors.Is(err, wizard.ErrPersist):
		return model.NewInternalError("failed to save progress")
	}

	return model.NewInternalError("")
}
