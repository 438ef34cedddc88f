package domain

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// AppError is the normalized shape every backend or transport failure is
// converted to before it reaches the notification queue.
type AppError struct {
	Title     string
	Message   string
	Severity  Severity
	DebugOnly bool
}

func (e AppError) Kind() NotificationKind {
	switch e.Severity {
	case SeverityWarning:
		return KindWarning
	case SeverityInfo:
		return KindInfo
	default:
		return KindError
	}
}
