package presence

import "encoding/json"

const (
	defaultAlertMessage  = "Suspicious activity detected"
	defaultAlertCategory = "security"
	defaultAlertSeverity = "medium"
)

// AlertPayload is the parsed form of an alert body. Alerts arrive either as
// a JSON object or as plain text; Structured records which shape was seen.
type AlertPayload struct {
	Structured bool
	Message    string
	Category   string
	Location   string
	Severity   string
}

type rawAlert struct {
	Message  string `json:"message"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Severity string `json:"severity"`
}

// ParseAlertPayload never fails: a non-JSON payload becomes the message text
// of a raw variant, and missing structured fields get defaults.
func ParseAlertPayload(payload string) AlertPayload {
	var raw rawAlert
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		message := payload
		if message == "" {
			message = defaultAlertMessage
		}
		return AlertPayload{
			Message:  message,
			Category: defaultAlertCategory,
			Severity: defaultAlertSeverity,
		}
	}

	out := AlertPayload{
		Structured: true,
		Message:    raw.Message,
		Category:   raw.Type,
		Location:   raw.Location,
		Severity:   raw.Severity,
	}
	if out.Message == "" {
		out.Message = defaultAlertMessage
	}
	if out.Category == "" {
		out.Category = defaultAlertCategory
	}
	if out.Severity == "" {
		out.Severity = defaultAlertSeverity
	}
	return out
}
