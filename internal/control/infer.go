package control

import "netwatch/internal/models"

// statusFields are scanned in priority order; the first field present wins.
var statusFields = []string{"running", "status", "state", "enabled", "active", "success"}

// InferState maps an untyped status payload to a service state. The control
// API schema is not owned by this program, so the field name is guessed from
// a fixed candidate list and its value matched against known "active"
// sentinels; any other value on a recognised field means stopped. Payloads
// with no recognised field are reported as unknown and left to the caller.
// The matched field name is returned for diagnostics.
func InferState(payload map[string]any) (models.ServiceState, string) {
	for _, field := range statusFields {
		value, ok := payload[field]
		if !ok {
			continue
		}
		if isActiveValue(value) {
			return models.StateRunning, field
		}
		return models.StateStopped, field
	}
	return models.StateUnknown, ""
}

func isActiveValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "running" || v == "active" || v == "enabled" || v == "up"
	case float64:
		// encoding/json decodes numbers as float64.
		return v == 1
	case int:
		return v == 1
	default:
		return false
	}
}
