package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/balu-dk/e3dc-gateway/internal/db/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CommandStore persists device command audit records
type CommandStore interface {
	SaveCommand(ctx context.Context, cmd *models.DeviceCommand) error
}

// CommandLogger records every device mutation to a CommandStore
type CommandLogger struct {
	store CommandStore
}

// NewCommandLogger creates a new command logger. A nil store disables
// persistence; commands are still logged.
func NewCommandLogger(store CommandStore) *CommandLogger {
	return &CommandLogger{
		store: store,
	}
}

// Log records a device command. Failures to persist are logged and dropped.
func (l *CommandLogger) Log(operation string, payload interface{}, outcome, message, remoteIP string) {
	fields := logrus.Fields{
		"operation": operation,
		"outcome":   outcome,
		"remoteIP":  remoteIP,
	}
	if message != "" {
		fields["message"] = message
	}
	logrus.WithFields(fields).Info("Device command processed")

	if l == nil || l.store == nil {
		return
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal device command payload")
		payloadJSON = []byte("{}")
	}

	cmd := &models.DeviceCommand{
		ID:        uuid.New(),
		Operation: operation,
		Payload:   payloadJSON,
		Outcome:   outcome,
		Message:   message,
		RemoteIP:  remoteIP,
		CreatedAt: time.Now(),
	}

	// Use a background context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.SaveCommand(ctx, cmd); err != nil {
		logrus.WithFields(logrus.Fields{
			"operation": operation,
			"commandID": cmd.ID,
			"error":     err,
		}).Error("Failed to store device command")
	}
}
