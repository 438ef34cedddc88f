package domain

// Durable storage keys for the token store. The file-backed store is the
// source of truth across CLI invocations; the session service projects it
// into memory.
const (
	StorageKeyAccessToken       = "access_token"
	StorageKeyRefreshToken      = "refresh_token"
	StorageKeyProfessionalID    = "professional_id"
	StorageKeyJustVerifiedEmail = "just_verified_email"
)

// User is the in-memory view of "who is logged in". The session service
// holds a nil *User when unauthenticated; there is no separate boolean that
// could drift out of sync.
type User struct {
	ID             int64
	Email          string
	ProfessionalID int64
}
