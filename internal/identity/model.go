package identity

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered GreenPay customer.
type User struct {
	ID           string
	Phone        string
	Role         string
	PINHash      []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Credentials is the login/registration request structure.
type Credentials struct {
	Phone string
	PIN   string
}
