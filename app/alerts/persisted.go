package alerts

import (
	"github.com/ponnect/ponnect-alerts/app/database"
)

// severityFromPersisted maps the stored three-level scale onto the
// pipeline's four levels. WATCH has no stored equivalent.
var severityFromPersisted = map[string]Severity{
	database.SeverityInfo:     SeverityInfo,
	database.SeverityWarning:  SeverityWarning,
	database.SeverityCritical: SeverityEmergency,
}

func SeverityFromPersisted(s string) Severity {
	if severity, ok := severityFromPersisted[s]; ok {
		return severity
	}
	return SeverityInfo
}

// FromPersisted converts an admin-authored alert to the pipeline shape.
func FromPersisted(stored database.Alert) Alert {
	activeFrom := stored.CreatedAt
	if stored.ActiveUntil != nil && stored.ActiveUntil.Before(activeFrom) {
		activeFrom = *stored.ActiveUntil
	}

	return Alert{
		ID:          stored.ID,
		Title:       stored.Title,
		Message:     stored.Message,
		Region:      Region(stored.Region),
		Severity:    SeverityFromPersisted(stored.Severity),
		Type:        Type(stored.Type),
		ActiveFrom:  activeFrom,
		ActiveUntil: stored.ActiveUntil,
		Source:      SourceAdmin,
		Confidence:  ConfidenceVerified,
		ExternalID:  "admin:" + stored.ID,
		Link:        stored.Link,
	}
}
