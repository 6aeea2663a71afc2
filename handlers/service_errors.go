package handlers

import (
	"net/http"

	"github.com/upb/math-agent/services"
	"github.com/upb/math-agent/utils"
	"go.uber.org/zap"
)

// User-facing messages for solve failures. Provider error text never reaches the caller.
const (
	msgSynthesisFailure = "We could not produce a solution for this question. Please try again."
	msgUpstreamTimeout  = "The solver took too long to respond. Please try again in a moment."
	msgUpstreamError    = "The solver is temporarily unavailable. Please try again in a moment."
	msgInternal         = "An unexpected error occurred. Please try again."
)

// HandleSolveError maps a failed solve to the {success:false, message} envelope.
// Guardrail rejections are ordinary outcomes and answer 200; upstream failures
// answer 502 or 504.
func HandleSolveError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := http.StatusOK
	message := services.GetErrorMessage(err)

	switch {
	case services.IsInputRejectedError(err), services.IsOutputRejectedError(err):
		logger.Info("solve rejected by guardrail",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.String("reason", string(services.GetRejectionReason(err))))

	case services.IsSynthesisFailureError(err):
		status = http.StatusBadGateway
		message = msgSynthesisFailure
		logger.Warn("synthesis failed", zap.Error(err))

	case services.IsUpstreamTimeoutError(err):
		status = http.StatusGatewayTimeout
		message = msgUpstreamTimeout
		logger.Warn("upstream timed out", zap.Error(err))

	case services.IsUpstreamError(err):
		status = http.StatusBadGateway
		message = msgUpstreamError
		logger.Error("upstream failed", zap.Error(err))

	default:
		status = http.StatusInternalServerError
		message = msgInternal
		logger.Error("unhandled solve error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
	}

	if err := utils.WriteFailure(w, status, message); err != nil {
		logger.Error("failed to write solve failure response", zap.Error(err))
	}
}

// HandleServiceError maps domain errors from the feedback and info endpoints to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsInvalidRatingError(err):
		if err := utils.WriteDetail(w, http.StatusBadRequest, "InvalidRating", services.GetErrorMessage(err)); err != nil {
			logger.Error("failed to write invalid rating response", zap.Error(err))
		}

	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, services.GetErrorMessage(err), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsNotFoundError(err):
		if err := utils.WriteNotFound(w, services.GetErrorMessage(err)); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsUpstreamTimeoutError(err):
		if err := utils.WriteError(w, http.StatusGatewayTimeout, msgUpstreamTimeout, nil); err != nil {
			logger.Error("failed to write timeout response", zap.Error(err))
		}

	case services.IsUpstreamError(err):
		logger.Error("upstream failed", zap.Error(err))
		if err := utils.WriteError(w, http.StatusBadGateway, msgUpstreamError, nil); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		details := utils.FieldsAsDetails(utils.GetValidationFields(err))
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
