package domain

// Settings is the recognized application configuration. Unknown keys in
// the persisted file are dropped on load; missing keys fall back to the
// defaults below.
type Settings struct {
	SleepStatus            string      `json:"sleepStatus"`
	SleepStatusDescription string      `json:"sleepStatusDescription"`
	InviteMessageSlot      int         `json:"inviteMessageSlot"`
	InviteMessageType      MessageType `json:"inviteMessageType"`
	AutoStatusEnabled      bool        `json:"autoStatusEnabled"`
	InviteMessageEnabled   bool        `json:"inviteMessageEnabled"`
	ActiveTab              string      `json:"activeTab"`
}

// SleepStatusNone disables the status override while leaving the
// description override usable on its own.
const SleepStatusNone = "none"

func DefaultSettings() Settings {
	return Settings{
		SleepStatus:            SleepStatusNone,
		SleepStatusDescription: "",
		InviteMessageSlot:      0,
		InviteMessageType:      MessageTypeMessage,
		AutoStatusEnabled:      false,
		InviteMessageEnabled:   false,
		ActiveTab:              "whitelist",
	}
}

// SettingsPatch is a partial settings update; nil fields leave the
// current value unchanged.
type SettingsPatch struct {
	SleepStatus            *string      `json:"sleepStatus,omitempty"`
	SleepStatusDescription *string      `json:"sleepStatusDescription,omitempty"`
	InviteMessageSlot      *int         `json:"inviteMessageSlot,omitempty"`
	InviteMessageType      *MessageType `json:"inviteMessageType,omitempty"`
	AutoStatusEnabled      *bool        `json:"autoStatusEnabled,omitempty"`
	InviteMessageEnabled   *bool        `json:"inviteMessageEnabled,omitempty"`
	ActiveTab              *string      `json:"activeTab,omitempty"`
}

// Apply merges the patch over the receiver and returns the result.
func (s Settings) Apply(patch SettingsPatch) Settings {
	if patch.SleepStatus != nil {
		s.SleepStatus = *patch.SleepStatus
	}
	if patch.SleepStatusDescription != nil {
		s.SleepStatusDescription = *patch.SleepStatusDescription
	}
	if patch.InviteMessageSlot != nil {
		s.InviteMessageSlot = *patch.InviteMessageSlot
	}
	if patch.InviteMessageType != nil {
		s.InviteMessageType = *patch.InviteMessageType
	}
	if patch.AutoStatusEnabled != nil {
		s.AutoStatusEnabled = *patch.AutoStatusEnabled
	}
	if patch.InviteMessageEnabled != nil {
		s.InviteMessageEnabled = *patch.InviteMessageEnabled
	}
	if patch.ActiveTab != nil {
		s.ActiveTab = *patch.ActiveTab
	}
	return s
}
