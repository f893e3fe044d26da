// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLoanNotFound indicates that the loan application is not found.
	ErrLoanNotFound = errors.New("loan not found")
	// ErrInvalidStateTransition indicates an illegal loan status change.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrInvalidData indicates that the given loan data violates a domain invariant.
	ErrInvalidData = errors.New("invalid loan data")
)

// Status is the lifecycle state of a loan application.
type Status string

// All loan application statuses.
const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Loan holds a single loan application.
type Loan struct {
	ID                uuid.UUID `json:"id"`
	ApplicantName     string    `json:"applicant_name"`
	ApplicantIdentity Identity  `json:"applicant_identity"`
	Amount            Amount    `json:"amount"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	ModifiedAt        time.Time `json:"modified_at"`
}

// Approve transitions a PENDING loan to APPROVED and returns the updated copy.
func (l Loan) Approve() (Loan, error) {
	if l.Status != StatusPending {
		return l, ErrInvalidStateTransition
	}

	l.Status = StatusApproved

	return l, nil
}

// Reject transitions a PENDING loan to REJECTED and returns the updated copy.
func (l Loan) Reject() (Loan, error) {
	if l.Status != StatusPending {
		return l, ErrInvalidStateTransition
	}

	l.Status = StatusRejected

	return l, nil
}

// Cancel transitions an APPROVED loan to CANCELLED and returns the updated copy.
func (l Loan) Cancel() (Loan, error) {
	if l.Status != StatusApproved {
		return l, ErrInvalidStateTransition
	}

	l.Status = StatusCancelled

	return l, nil
}

// Filter holds the optional criteria of a loan search.
// Zero values mean the criterion is not applied.
type Filter struct {
	Identity  string
	StartDate time.Time
	EndDate   time.Time
}
