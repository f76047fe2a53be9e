package serverutils

import (
	"errors"

	"ms-annotation-be/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{Message: message, Data: data}
}

// ErrorHandlerMiddleware maps the error taxonomy onto HTTP statuses. Lookup
// misses become 404, descriptor contract violations 400, submission
// failures 502; lifecycle-state errors carry enough context for the client
// to distinguish "not ready" from "failed" from "empty".
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error

		status := fiber.StatusInternalServerError
		switch {
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
		case isNotFound(err):
			status = fiber.StatusNotFound
		case errors.Is(err, apperrors.ErrScanRequired),
			errors.Is(err, apperrors.ErrUnknownField),
			errors.Is(err, apperrors.ErrBadFilter),
			errors.Is(err, apperrors.ErrPeakNotUnique):
			status = fiber.StatusBadRequest
		case errors.Is(err, apperrors.ErrJobSubmission):
			status = fiber.StatusBadGateway
		case errors.Is(err, apperrors.ErrCorruptStore):
			status = fiber.StatusUnprocessableEntity
		case isJobState(err):
			status = fiber.StatusConflict
		}

		return ctx.Status(status).JSON(fiber.Map{"message": err.Error()})
	}
}

func isNotFound(err error) bool {
	var jobNotFound *apperrors.JobNotFoundError
	return errors.Is(err, apperrors.ErrScanNotFound) ||
		errors.Is(err, apperrors.ErrMoleculeNotFound) ||
		errors.Is(err, apperrors.ErrFragmentNotFound) ||
		errors.Is(err, apperrors.ErrPeakNotFound) ||
		errors.As(err, &jobNotFound)
}

func isJobState(err error) bool {
	var incomplete *apperrors.JobIncompleteError
	var failed *apperrors.JobFailedError
	var missing *apperrors.MissingDataError
	return errors.As(err, &incomplete) || errors.As(err, &failed) || errors.As(err, &missing)
}
