package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/rinsr/internal/domain"
)

// ErrorResponse writes an error as a failure envelope.
// Domain error codes map to HTTP status codes; upstream failures relay the
// upstream's own status.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	op := domain.ErrorOp(err)
	status := ErrorStatus(err)

	logError(logger, r, err, code, op, status)

	writeEnvelope(w, status, domain.Failed(err))
}

// ErrorStatus returns the HTTP status an error is reported with.
func ErrorStatus(err error) int {
	if status := domain.UpstreamStatus(err); status >= 400 && status <= 599 {
		return status
	}
	return ErrorCodeToHTTPStatus(domain.ErrorCode(err))
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge // 413
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.EBADGATEWAY, domain.EUPSTREAM:
		return http.StatusBadGateway // 502
	case domain.ECONFIG, domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// UnauthorizedResponse is a convenience wrapper for 401 errors.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Unauthorized("", "Unauthorized"))
}

// NotFoundResponse is a convenience wrapper for 404 errors.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.NotFound("", "The requested resource was not found"))
}

// logError logs the error with appropriate level based on status code.
func logError(logger *slog.Logger, r *http.Request, err error, code, op string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}

	if op != "" {
		attrs = append(attrs, "op", op)
	}

	// 5xx are server-side issues, 4xx are expected client errors
	if status >= 500 {
		logger.Error("server error", attrs...)
	} else if status >= 400 {
		logger.Info("client error", attrs...)
	}
}

// writeEnvelope writes a JSON envelope. API responses always reflect live
// upstream state and are never cached.
func writeEnvelope(w http.ResponseWriter, status int, env domain.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// respondOK writes a success envelope.
func respondOK(w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(w, status, domain.OK(data, message))
}
