package principal

import (
	"time"

	"github.com/google/uuid"
)

// State of an administrator account. Only active principals may log in locally.
type State int

const (
	StateUnverified State = 0
	StateActive     State = 1
)

type Principal struct {
	ID           uuid.UUID
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
	State        State
	LastLogin    *Login
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Login is the most recent successful local authentication.
type Login struct {
	At time.Time
	IP string
}

// Name is the display name embedded in issued tokens.
func (p *Principal) Name() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

func (p *Principal) IsActive() bool {
	return p.State == StateActive
}

type CreatePrincipalInput struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
	State        State
}
