package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeviceCommand is an audit record of one mutation sent to the storage system
type DeviceCommand struct {
	ID        uuid.UUID       `json:"id"`
	Operation string          `json:"operation"` // set_power_limits, set_powersave, ...
	Payload   json.RawMessage `json:"payload"`   // arguments as sent to the device
	Outcome   string          `json:"outcome"`   // success, rejected, invalid_input, error
	Message   string          `json:"message,omitempty"`
	RemoteIP  string          `json:"remoteIp,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
