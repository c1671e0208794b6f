package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/campushub/notify/pkg/logger"
	"github.com/campushub/notify/pkg/requestid"
)

// ErrorInfo contains classified error information
type ErrorInfo struct {
	StatusCode int
	Message    string
	LogLevel   slog.Level
}

func isClientError(statusCode int) bool {
	return statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError
}

// determineLogLevel maps HTTP status codes to appropriate log levels
func determineLogLevel(statusCode int) slog.Level {
	if isClientError(statusCode) {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// classifyError analyzes the error and returns structured error information
func classifyError(err error) ErrorInfo {
	info := ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Message:    "An error occurred processing your request",
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.StatusCode = httpErr.Code
		info.Message = httpErr.Key
	}

	// Validation errors override an HTTP error if both exist
	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		info.StatusCode = http.StatusUnprocessableEntity
		info.Message = validationErr.Error()
	}

	info.LogLevel = determineLogLevel(info.StatusCode)
	return info
}

// logError logs the error with request context
func logError(log *slog.Logger, ctx Context, err error, info ErrorInfo) {
	requestID := requestid.FromContext(ctx.Request().Context())

	log.LogAttrs(ctx.Request().Context(), info.LogLevel, "request error",
		logger.RequestID(requestID),
		logger.Error(err),
		slog.Int("status_code", info.StatusCode),
		slog.String("method", ctx.Request().Method),
		slog.String("path", ctx.Request().URL.Path),
		logger.Component("error_handler"),
	)
}

// NewErrorHandler creates the default error handler for JSON APIs: errors are
// classified, logged with request context, and rendered via JSONError.
// Configure this once in main.go and pass to all services.
func NewErrorHandler(log *slog.Logger) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		info := classifyError(err)
		logError(log, ctx, err, info)

		response := JSONError(err, WithJSONStatus(info.StatusCode))
		if renderErr := response.Render(ctx.ResponseWriter(), ctx.Request()); renderErr != nil {
			log.ErrorContext(ctx.Request().Context(), "failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
			http.Error(ctx.ResponseWriter(), "Internal Server Error", http.StatusInternalServerError)
		}
	}
}
