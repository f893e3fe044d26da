// Package loanservice manages business logic layer of loan applications.
package loanservice

import (
	"context"
	"time"

	"github.com/alvarodelaflor/loan/internal/domain"

	"github.com/google/uuid"
)

// Repo provides data access layer interface needed by loan service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package loanservice
type Repo interface {
	Save(ctx context.Context, loan domain.Loan) (domain.Loan, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Loan, error)
	List(ctx context.Context) ([]domain.Loan, error)
	ListByIdentity(ctx context.Context, identity domain.Identity) ([]domain.Loan, error)
	Search(ctx context.Context, filter domain.Filter) ([]domain.Loan, error)
	History(ctx context.Context, id uuid.UUID) ([]domain.Loan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service facilitates loan service layer logic.
type Service struct {
	repo Repo
}

// New returns loan service struct to manage loan business logic.
func New(lr Repo) *Service {
	return &Service{repo: lr}
}

// CreateParams holds the raw input of a loan application.
type CreateParams struct {
	ApplicantName    string
	IdentityDocument string
	Amount           string
	Currency         string
}

// Create validates the application data and stores a new PENDING loan.
func (s *Service) Create(ctx context.Context, params CreateParams) (domain.Loan, error) {
	identity, err := domain.NewIdentity(params.IdentityDocument)
	if err != nil {
		return domain.Loan{}, err
	}

	amount, err := domain.NewAmountFromString(params.Amount, params.Currency)
	if err != nil {
		return domain.Loan{}, err
	}

	now := time.Now().UTC()

	loan := domain.Loan{
		ID:                uuid.New(),
		ApplicantName:     params.ApplicantName,
		ApplicantIdentity: identity,
		Amount:            amount,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		ModifiedAt:        now,
	}

	return s.repo.Save(ctx, loan)
}

// Get returns the loan with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	return s.repo.Get(ctx, id)
}

// Approve transitions the loan to APPROVED and persists it.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	return s.transition(ctx, id, domain.Loan.Approve)
}

// Reject transitions the loan to REJECTED and persists it.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	return s.transition(ctx, id, domain.Loan.Reject)
}

// Cancel transitions the loan to CANCELLED and persists it.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	return s.transition(ctx, id, domain.Loan.Cancel)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(domain.Loan) (domain.Loan, error)) (domain.Loan, error) {
	loan, err := s.repo.Get(ctx, id)
	if err != nil {
		return loan, err
	}

	updated, err := apply(loan)
	if err != nil {
		return loan, err
	}

	return s.repo.Save(ctx, updated)
}

// List returns all stored loans. An empty listing is a valid result.
func (s *Service) List(ctx context.Context) ([]domain.Loan, error) {
	return s.repo.List(ctx)
}

// ListByIdentity returns the loans of the given applicant identity.
// No matching loans is treated as not found.
func (s *Service) ListByIdentity(ctx context.Context, identityDocument string) ([]domain.Loan, error) {
	identity, err := domain.NewIdentity(identityDocument)
	if err != nil {
		return nil, err
	}

	loans, err := s.repo.ListByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	if len(loans) == 0 {
		return nil, domain.ErrLoanNotFound
	}

	return loans, nil
}

// Search returns the loans matching the filter.
// No matching loans is treated as not found.
func (s *Service) Search(ctx context.Context, filter domain.Filter) ([]domain.Loan, error) {
	loans, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(loans) == 0 {
		return nil, domain.ErrLoanNotFound
	}

	return loans, nil
}

// History returns every persisted revision of the loan, oldest first.
// A loan without revisions is treated as not found.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]domain.Loan, error) {
	revisions, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(revisions) == 0 {
		return nil, domain.ErrLoanNotFound
	}

	return revisions, nil
}

// Delete removes the loan with the given id.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}
