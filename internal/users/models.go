package users

import "time"

// User is the public profile other users may see.
type User struct {
	ID      int64  `json:"user_id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Nick    string `json:"nick"`
}

// Me is the caller's own profile.
type Me struct {
	User
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser holds a validated signup with the password already hashed.
type NewUser struct {
	Email        string
	Nick         string
	Name         string
	Surname      string
	PasswordHash string
}

// Credentials is what login needs to verify a password.
type Credentials struct {
	Me
	PasswordHash string
}
