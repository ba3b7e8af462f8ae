package handlers

import (
	"errors"
	"net/http"

	"github.com/balu-dk/e3dc-gateway/internal/api/request"
	"github.com/balu-dk/e3dc-gateway/internal/service"
	"github.com/sirupsen/logrus"
)

// ErrorReporter maps request and device failures to HTTP responses
type ErrorReporter struct {
	// Legacy keeps 501 for validation errors and refused device operations,
	// as existing clients of the gateway expect.
	Legacy bool
}

// Status returns the HTTP status code for err
func (e ErrorReporter) Status(err error) int {
	var (
		malformed  *request.MalformedError
		validation *request.ValidationError
		refused    *service.OperationError
		exception  *service.DeviceException
	)
	switch {
	case errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.As(err, &validation):
		if e.Legacy {
			return http.StatusNotImplemented
		}
		return http.StatusBadRequest
	case errors.As(err, &refused):
		if e.Legacy {
			return http.StatusNotImplemented
		}
		return http.StatusBadGateway
	case errors.As(err, &exception):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Report writes err as a {"message": ...} response
func (e ErrorReporter) Report(w http.ResponseWriter, r *http.Request, err error) {
	status := e.Status(err)
	message := err.Error()

	var (
		refused   *service.OperationError
		exception *service.DeviceException
	)
	switch {
	case errors.As(err, &refused):
		message = refused.Message
	case errors.As(err, &exception):
		message = exception.Message
	}

	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	sendMessage(w, message, status)
}
