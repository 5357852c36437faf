package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithFields(logrus.Fields{"panic": rec, "request_id": requestID(r.Context())}).Error("handler panicked")
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  requestID(r.Context()),
		}).Debug("request")
	})
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// writeDomainError maps controller and store errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	if ve, ok := modal.AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed",
			Fields:  ve.Fields,
		})
		return
	}
	status, code := mapDomainError(err)
	writeError(w, status, code, err.Error())
}

func mapDomainError(err error) (int, string) {
	switch {
	case modal.IsNotFound(err), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, modal.ErrOperationInProgress):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, modal.ErrNoInstance):
		return http.StatusBadRequest, "NO_INSTANCE"
	case isBackendError(err):
		return http.StatusBadGateway, "BACKEND_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func isBackendError(err error) bool {
	var (
		le *modal.LoadError
		se *modal.SaveError
		te *modal.ToggleError
		de *modal.DeleteError
	)
	return errors.As(err, &le) || errors.As(err, &se) || errors.As(err, &te) || errors.As(err, &de)
}
