package domain

import "strings"

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest uses the capitalised field names the authentication API binds.
// Role is only honoured by the privileged endpoint.
type RegisterRequest struct {
	Username    string `json:"Username"`
	Email       string `json:"Email"`
	Password    string `json:"Password"`
	Name        string `json:"Name"`
	PhoneNumber string `json:"PhoneNumber,omitempty"`
	Role        string `json:"Role,omitempty"`
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
