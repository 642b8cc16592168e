package domain

import "strings"

// Whitelist is the user-curated list of identities permitted to receive
// automatic invites. Order is user-meaningful for display only.
type Whitelist []string

// NormalizeEntry reduces an identity to its comparable form.
func NormalizeEntry(entry string) string {
	return strings.ToLower(strings.TrimSpace(entry))
}

// Normalized returns the whitelist with every entry normalized and
// empty entries dropped.
func (w Whitelist) Normalized() []string {
	entries := make([]string, 0, len(w))
	for _, entry := range w {
		normalized := NormalizeEntry(entry)
		if normalized == "" {
			continue
		}
		entries = append(entries, normalized)
	}
	return entries
}

// Matches reports whether a sender is whitelisted by id or by display
// name. Matching is case-insensitive and whitespace-trimmed.
func (w Whitelist) Matches(senderID string, displayName string) bool {
	id := NormalizeEntry(senderID)
	name := NormalizeEntry(displayName)

	for _, entry := range w.Normalized() {
		if entry == id || (name != "" && entry == name) {
			return true
		}
	}
	return false
}
