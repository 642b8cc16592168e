package domain

// InviteNotification is one "requestInvite" entry from the notification
// feed: someone asking to be invited to the user's current instance.
// These are transient; they are fetched fresh on every poll and never
// persisted.
type InviteNotification struct {
	ID                string
	SenderID          string
	SenderDisplayName string
}
