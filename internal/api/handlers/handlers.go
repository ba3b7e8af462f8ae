package handlers

import (
	"net"
	"net/http"
	"time"

	"github.com/balu-dk/e3dc-gateway/internal/api/request"
	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
	"github.com/balu-dk/e3dc-gateway/internal/service"
)

// Handler handles API requests
type Handler struct {
	gateway *service.Gateway
	errors  ErrorReporter
	now     func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(gateway *service.Gateway, reporter ErrorReporter) *Handler {
	return &Handler{
		gateway: gateway,
		errors:  reporter,
		now:     time.Now,
	}
}

// Read returns a handler passing the device snapshot of resource through
// unmodified
func (h *Handler) Read(resource e3dc.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := h.gateway.Read(r.Context(), resource)
		if err != nil {
			h.errors.Report(w, r, err)
			return
		}
		sendResponse(w, snap, http.StatusOK)
	}
}

// UpdatePowerSettings applies a power settings patch
func (h *Handler) UpdatePowerSettings(w http.ResponseWriter, r *http.Request) {
	body, err := request.ReadJSON(w, r)
	if err != nil {
		h.errors.Report(w, r, err)
		return
	}

	patch, err := request.ParsePowerSettings(body)
	if err != nil {
		h.errors.Report(w, r, err)
		return
	}

	if err := h.gateway.UpdatePowerSettings(r.Context(), patch, remoteIP(r)); err != nil {
		h.errors.Report(w, r, err)
		return
	}

	sendMessage(w, "success", http.StatusOK)
}

// UpdateIdlePeriods forwards an idle period schedule to the device
func (h *Handler) UpdateIdlePeriods(w http.ResponseWriter, r *http.Request) {
	body, err := request.ReadJSON(w, r)
	if err != nil {
		h.errors.Report(w, r, err)
		return
	}

	if err := h.gateway.SetIdlePeriods(r.Context(), body, remoteIP(r)); err != nil {
		h.errors.Report(w, r, err)
		return
	}

	sendMessage(w, "success", http.StatusOK)
}

// GetDBData returns aggregated history from the device database
func (h *Handler) GetDBData(w http.ResponseWriter, r *http.Request) {
	args, err := request.ParseDBQuery(r.URL.Query(), h.now())
	if err != nil {
		h.errors.Report(w, r, err)
		return
	}

	snap, err := h.gateway.DBData(r.Context(), args.StartDate, args.Timespan)
	if err != nil {
		h.errors.Report(w, r, err)
		return
	}
	sendResponse(w, snap, http.StatusOK)
}

// Health reports that the gateway is serving, without touching the device
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NotFound answers requests for unknown resources
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	sendMessage(w, "resource not found", http.StatusNotFound)
}

// MethodNotAllowed answers known resources requested with the wrong method
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendMessage(w, "method not allowed", http.StatusMethodNotAllowed)
}
