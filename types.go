package authcore

// User is the internal credential record. It carries the password digest and
// TOTP secret and must never cross the package boundary; external callers
// only ever see a [UserView].
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordDigest string
	EmailVerified  bool
	MFAEnabled     bool
	TOTPSecret     string
	CreatedAt      int64 // unix seconds
	UpdatedAt      int64 // unix seconds
}

// UserView is the read projection of a user. It is constructed at the store
// boundary and structurally cannot contain the password digest or TOTP
// secret.
type UserView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	MFAEnabled    bool   `json:"mfaEnabled"`
	CreatedAt     int64  `json:"createdAt"`
}

func (u *User) view() *UserView {
	return &UserView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		MFAEnabled:    u.MFAEnabled,
		CreatedAt:     u.CreatedAt,
	}
}

// RegisterInput is a validated registration intent.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is the outcome of Login and VerifyMFAForLogin. When
// MFARequired is true no session was created and both tokens are empty; the
// client must complete the MFA challenge to obtain them.
type LoginResult struct {
	User         *UserView
	MFARequired  bool
	AccessToken  string
	RefreshToken string
}

// RefreshResult is the outcome of Refresh. RefreshToken is empty unless the
// session entered its rotation window and a new refresh token was minted.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	Rotated      bool
}

// MfaSetup is the outcome of GenerateMfaSetup. When AlreadyEnabled is true
// the secret and QR code are empty and the stored secret was not touched.
type MfaSetup struct {
	AlreadyEnabled bool
	Secret         string
	QRCode         string
}

// MfaStatus reports the account's MFA enrollment state.
type MfaStatus struct {
	Enabled bool
}

// SessionInfo describes one live session for introspection.
type SessionInfo struct {
	ID        string `json:"id"`
	UserAgent string `json:"userAgent"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
	IsCurrent bool   `json:"isCurrent"`
}

// ForgotPasswordResult carries the mail provider's message ID for the
// dispatched reset email. The reset link itself is only ever delivered over
// the email channel.
type ForgotPasswordResult struct {
	EmailID string
}

// AccessIdentity is the verified identity extracted from an access token
// whose session is still live.
type AccessIdentity struct {
	UserID    string
	SessionID string
}
