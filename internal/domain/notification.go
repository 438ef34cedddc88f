package domain

import "time"

type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
	KindWarning NotificationKind = "warning"
)

// DefaultTTL is how long a notification of this kind stays visible when the
// caller does not pick an explicit duration. Zero means sticky.
func (k NotificationKind) DefaultTTL() time.Duration {
	switch k {
	case KindSuccess:
		return 5 * time.Second
	case KindError:
		return 7 * time.Second
	default:
		return 3 * time.Second
	}
}

type Notification struct {
	ID        string
	Kind      NotificationKind
	Title     string
	Message   string
	CreatedAt time.Time
	TTL       time.Duration
}
