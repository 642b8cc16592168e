package domain

// User is the slice of the VRChat profile this agent cares about.
type User struct {
	ID                string
	DisplayName       string
	Status            string
	StatusDescription string
	Location          string
	Presence          Presence
}

// Presence is the live world/instance pair reported on the profile.
// Either field may be empty when the user is offline or on an older
// client.
type Presence struct {
	World    string
	Instance string
}

// Friend is the projection returned by the friends listing.
type Friend struct {
	ID                string
	DisplayName       string
	Username          string
	Status            string
	StatusDescription string
	ThumbnailURL      string
}
