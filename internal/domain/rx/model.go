package rx

import "time"

// Status is the verification state of an uploaded prescription.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Prescription is an uploaded prescription document. Terminal states are
// reached only through server-side verification.
type Prescription struct {
	ID              int64      `json:"id"`
	Filename        string     `json:"filename"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Deletable reports whether the client may request deletion. The server
// remains authoritative on this rule.
func (p Prescription) Deletable() bool {
	return p.Status != StatusApproved
}
