package domain

// SessionState is the per-client authentication flag. An empty Email means no user.
type SessionState struct {
	LoggedIn bool   `json:"loggedIn"`
	Email    string `json:"email,omitempty"`
}
