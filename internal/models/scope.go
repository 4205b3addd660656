package models

import "time"

type Domain struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type Alias struct {
	ID        string    `json:"id"`
	DomainID  string    `json:"domain_id"`
	LocalPart string    `json:"local_part"`
	IsEnabled bool      `json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Scope is the ownership boundary under which message identity and
// threading are isolated: a verified domain, narrowed to a specific
// alias when one exists for the recipient's local part.
type Scope struct {
	Domain Domain `json:"domain"`
	Alias  *Alias `json:"alias,omitempty"`
}

// Key returns the stable string used to partition messages and threads.
// Two messages with equal normalized IDs under different keys are
// unrelated rows.
func (s *Scope) Key() string {
	if s.Alias != nil {
		return "alias:" + s.Alias.ID
	}
	return "domain:" + s.Domain.ID
}

// OwnerID returns the account that owns the scope's domain.
func (s *Scope) OwnerID() string {
	return s.Domain.OwnerID
}
