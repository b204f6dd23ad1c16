package models

// SessionResponse is the JSON view of the authorization state.
type SessionResponse struct {
	User           *Identity `json:"user"`
	Profile        *Profile  `json:"profile"`
	Loading        bool      `json:"loading"`
	SessionChecked bool      `json:"session_checked"`
}

// AdminStatusResponse is returned by the admin status endpoint.
type AdminStatusResponse struct {
	IsAdmin bool `json:"is_admin"`
}

// ChromeResponse is the data the console chrome renders for the signed-in user.
type ChromeResponse struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	IsAdmin   bool   `json:"is_admin"`
}
