package domain

// TwoFactorKind names a second-factor verification method accepted by
// the vendor.
type TwoFactorKind string

const (
	TwoFactorTOTP   TwoFactorKind = "totp"
	TwoFactorBackup TwoFactorKind = "otp"
	TwoFactorEmail  TwoFactorKind = "emailotp"
)

func (k TwoFactorKind) Valid() bool {
	switch k {
	case TwoFactorTOTP, TwoFactorBackup, TwoFactorEmail:
		return true
	default:
		return false
	}
}

// LoginResult is the outcome of a password login: either a verified
// user, or a demand for a second factor with the accepted methods.
type LoginResult struct {
	User             *User
	TwoFactorMethods []string
}

// PendingTwoFactor reports whether the login stopped at the two-factor
// step.
func (r LoginResult) PendingTwoFactor() bool {
	return len(r.TwoFactorMethods) > 0
}
