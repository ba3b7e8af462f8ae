package handlers

import (
	"net/http"

	"github.com/balu-dk/e3dc-gateway/internal/serialize"
	"github.com/sirupsen/logrus"
)

// Helper functions to send responses
func sendResponse(w http.ResponseWriter, payload interface{}, statusCode int) {
	body, err := serialize.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode response")
		statusCode = http.StatusInternalServerError
		body = []byte(`{"message":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logrus.WithError(err).Debug("Failed to write response")
	}
}

func sendMessage(w http.ResponseWriter, message string, statusCode int) {
	sendResponse(w, map[string]string{"message": message}, statusCode)
}
