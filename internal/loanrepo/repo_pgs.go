// Package loanrepo manages repository layer of loan applications.
package loanrepo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/alvarodelaflor/loan/internal/domain"
	"github.com/alvarodelaflor/loan/pkg/dbpkg"
	"github.com/alvarodelaflor/loan/pkg/errorspkg"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates loan repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewRepoPGS returns loan RepoPGS with a connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const saveQuery = `
INSERT INTO
	loans (id, applicant_name, applicant_identity, amount, currency, status)
VALUES
	($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET
	applicant_name = EXCLUDED.applicant_name,
	applicant_identity = EXCLUDED.applicant_identity,
	amount = EXCLUDED.amount,
	currency = EXCLUDED.currency,
	status = EXCLUDED.status,
	modified_at = now()
RETURNING id, applicant_name, applicant_identity, amount, currency, status, created_at, modified_at
`

const appendRevisionQuery = `
INSERT INTO
	loans_history (loan_id, applicant_name, applicant_identity, amount, currency, status, created_at, modified_at)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8)
`

// Save upserts the loan and appends a revision to the audit log within
// a single transaction, so the loan row never diverges from its history.
// The store assigns created_at on first insert and refreshes modified_at
// on every write.
func (r *RepoPGS) Save(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Loan{}, errorspkg.ErrInternal
	}

	defer rollback(l, tx)

	row := tx.QueryRowContext(ctx, saveQuery,
		loan.ID,
		loan.ApplicantName,
		loan.ApplicantIdentity,
		loan.Amount.Value,
		loan.Amount.Currency,
		loan.Status,
	)

	saved, err := scanLoan(row)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Loan{}, errorspkg.ErrInternal
	}

	_, err = tx.ExecContext(ctx, appendRevisionQuery,
		saved.ID,
		saved.ApplicantName,
		saved.ApplicantIdentity,
		saved.Amount.Value,
		saved.Amount.Currency,
		saved.Status,
		saved.CreatedAt,
		saved.ModifiedAt,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Loan{}, errorspkg.ErrInternal
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.Loan{}, errorspkg.ErrInternal
	}

	return saved, nil
}

const getQuery = `
SELECT
	id, applicant_name, applicant_identity, amount, currency, status, created_at, modified_at
FROM loans
WHERE id = $1
`

// Get returns the loan with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	l := zerolog.Ctx(ctx)

	loan, err := scanLoan(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return loan, domain.ErrLoanNotFound
		}

		l.Error().Err(err).Send()

		return loan, errorspkg.ErrInternal
	}

	return loan, nil
}

const listQuery = `
SELECT
	id, applicant_name, applicant_identity, amount, currency, status, created_at, modified_at
FROM loans
ORDER BY created_at
`

// List returns all stored loans ordered by creation time.
func (r *RepoPGS) List(ctx context.Context) ([]domain.Loan, error) {
	return r.queryLoans(ctx, listQuery)
}

const listByIdentityQuery = `
SELECT
	id, applicant_name, applicant_identity, amount, currency, status, created_at, modified_at
FROM loans
WHERE applicant_identity = $1
ORDER BY created_at
`

// ListByIdentity returns all loans of the given applicant identity.
func (r *RepoPGS) ListByIdentity(ctx context.Context, identity domain.Identity) ([]domain.Loan, error) {
	return r.queryLoans(ctx, listByIdentityQuery, identity)
}

// Search returns the loans matching the given filter. Time bounds are
// truncated to whole seconds and the range is inclusive-start,
// exclusive-end with the end advanced by one second, so any sub-second
// timestamp within the requested end second matches.
func (r *RepoPGS) Search(ctx context.Context, filter domain.Filter) ([]domain.Loan, error) {
	var (
		sb   strings.Builder
		args []interface{}
	)

	sb.WriteString(`
SELECT
	id, applicant_name, applicant_identity, amount, currency, status, created_at, modified_at
FROM loans
WHERE true`)

	if filter.Identity != "" {
		args = append(args, filter.Identity)
		sb.WriteString(" AND applicant_identity = $" + strconv.Itoa(len(args)))
	}

	if !filter.StartDate.IsZero() {
		args = append(args, filter.StartDate.Truncate(time.Second))
		sb.WriteString(" AND created_at >= $" + strconv.Itoa(len(args)))
	}

	if !filter.EndDate.IsZero() {
		args = append(args, filter.EndDate.Truncate(time.Second).Add(time.Second))
		sb.WriteString(" AND created_at < $" + strconv.Itoa(len(args)))
	}

	sb.WriteString(" ORDER BY created_at")

	return r.queryLoans(ctx, sb.String(), args...)
}

const historyQuery = `
SELECT
	loan_id, applicant_name, applicant_identity, amount, currency, status, created_at, modified_at
FROM loans_history
WHERE loan_id = $1 AND applicant_name IS NOT NULL
ORDER BY revision
`

// History returns every persisted revision of the loan, oldest first.
// Tombstone revisions written on delete are excluded.
func (r *RepoPGS) History(ctx context.Context, id uuid.UUID) ([]domain.Loan, error) {
	return r.queryLoans(ctx, historyQuery, id)
}

const tombstoneQuery = `
INSERT INTO loans_history (loan_id)
VALUES ($1)
`

const deleteQuery = `
DELETE FROM loans
WHERE id = $1
`

// Delete writes a tombstone revision and hard-deletes the loan within a
// single transaction, so a tombstone never outlives a failed delete.
func (r *RepoPGS) Delete(ctx context.Context, id uuid.UUID) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer rollback(l, tx)

	if _, err := tx.ExecContext(ctx, tombstoneQuery, id); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, id); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

func rollback(l *zerolog.Logger, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		l.Error().Err(err).Send()
	}
}

func (r *RepoPGS) queryLoans(ctx context.Context, query string, args ...interface{}) ([]domain.Loan, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Loan{}

	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, loan)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (domain.Loan, error) {
	var loan domain.Loan

	err := row.Scan(
		&loan.ID,
		&loan.ApplicantName,
		&loan.ApplicantIdentity,
		&loan.Amount.Value,
		&loan.Amount.Currency,
		&loan.Status,
		&loan.CreatedAt,
		&loan.ModifiedAt,
	)

	return loan, err
}
