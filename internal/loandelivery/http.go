// Package loandelivery manages delivery layer of loan applications.
package loandelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/alvarodelaflor/loan/internal/domain"
	"github.com/alvarodelaflor/loan/internal/loanservice"
	"github.com/alvarodelaflor/loan/pkg/errorspkg"
	"github.com/alvarodelaflor/loan/pkg/web"

	"github.com/google/uuid"
)

// Service provides service layer interface needed by loan delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package loandelivery
type Service interface {
	Create(ctx context.Context, params loanservice.CreateParams) (domain.Loan, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Loan, error)
	Approve(ctx context.Context, id uuid.UUID) (domain.Loan, error)
	Reject(ctx context.Context, id uuid.UUID) (domain.Loan, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Loan, error)
	List(ctx context.Context) ([]domain.Loan, error)
	ListByIdentity(ctx context.Context, identityDocument string) ([]domain.Loan, error)
	Search(ctx context.Context, filter domain.Filter) ([]domain.Loan, error)
	History(ctx context.Context, id uuid.UUID) ([]domain.Loan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler facilitates loan delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns loan handler.
func NewHandler(ls Service) Handler {
	return Handler{service: ls}
}

type data struct {
	Loan domain.Loan `json:"loan"`
}
type response struct {
	Data data `json:"data,omitempty"`
}

type dataLoans struct {
	Loans []domain.Loan `json:"loans"`
}
type responseLoans struct {
	Data dataLoans `json:"data,omitempty"`
}

type createRequest struct {
	ApplicantName    string `json:"applicant_name" binding:"required"`
	IdentityDocument string `json:"identity_document" binding:"required,identity"`
	Amount           string `json:"amount" binding:"required"`
	Currency         string `json:"currency" binding:"required,currency"`
}

// Create handles http request to submit a loan application.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.JSONError{Error: bindingErrorMsg(err)}})

		return
	}

	loan, err := h.service.Create(ctx, loanservice.CreateParams{
		ApplicantName:    req.ApplicantName,
		IdentityDocument: req.IdentityDocument,
		Amount:           req.Amount,
		Currency:         req.Currency,
	})
	if err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{loan}})
}

type uriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to retrieve a loan application.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id, ok := bindID(gctx)
	if !ok {
		return
	}

	loan, err := h.service.Get(ctx, id)
	if err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{loan}})
}

// List handles http request to list all loan applications.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	loans, err := h.service.List(ctx)
	if err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseLoans{Data: dataLoans{loans}})
}

// History handles http request to consult the audit history of a loan.
func (h *Handler) History(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id, ok := bindID(gctx)
	if !ok {
		return
	}

	revisions, err := h.service.History(ctx, id)
	if err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseLoans{Data: dataLoans{revisions}})
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles http request to advance the loan application status.
func (h *Handler) UpdateStatus(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	id, ok := bindID(gctx)
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.JSONError{Error: bindingErrorMsg(err)}})

		return
	}

	var err error

	switch domain.Status(req.Status) {
	case domain.StatusApproved:
		_, err = h.service.Approve(ctx, id)
	case domain.StatusRejected:
		_, err = h.service.Reject(ctx, id)
	case domain.StatusCancelled:
		_, err = h.service.Cancel(ctx, id)
	case domain.StatusPending:
		gctx.JSON(http.StatusBadRequest, web.Error(errors.New("cannot transition back to PENDING status")))
		return
	default:
		gctx.JSON(http.StatusBadRequest, web.Error(errors.New("unknown status action: "+req.Status)))
		return
	}

	if err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.Status(http.StatusNoContent)
}

type identityRequest struct {
	Identity string `uri:"identity" binding:"required,identity"`
}

// ListByIdentity handles http request to search loans by applicant identity.
func (h *Handler) ListByIdentity(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req identityRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.JSONError{Error: bindingErrorMsg(err)}})

		return
	}

	loans, err := h.service.ListByIdentity(ctx, req.Identity)
	if err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseLoans{Data: dataLoans{loans}})
}

type searchRequest struct {
	ApplicantIdentity string `form:"applicantIdentity"`
	StartDate         string `form:"startDate"`
	EndDate           string `form:"endDate"`
}

// Search handles http request to search loans by identity and/or creation date range.
func (h *Handler) Search(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req searchRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.JSONError{Error: bindingErrorMsg(err)}})

		return
	}

	filter := domain.Filter{Identity: req.ApplicantIdentity}

	if req.StartDate != "" {
		start, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			gctx.JSON(http.StatusBadRequest, web.Error(errors.New("startDate must be an RFC 3339 timestamp")))
			return
		}

		filter.StartDate = start
	}

	if req.EndDate != "" {
		end, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			gctx.JSON(http.StatusBadRequest, web.Error(errors.New("endDate must be an RFC 3339 timestamp")))
			return
		}

		filter.EndDate = end
	}

	loans, err := h.service.Search(ctx, filter)
	if err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseLoans{Data: dataLoans{loans}})
}

// Delete handles http request to delete a loan application.
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id, ok := bindID(gctx)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		abortWithError(gctx, err)
		return
	}

	gctx.Status(http.StatusNoContent)
}

func bindID(gctx *gin.Context) (uuid.UUID, bool) {
	l := zerolog.Ctx(gctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.JSONError{Error: bindingErrorMsg(err)}})

		return uuid.UUID{}, false
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(errors.New("id must be a valid UUID")))
		return uuid.UUID{}, false
	}

	return id, true
}

func bindingErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return err.Error()
}

func abortWithError(gctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, domain.ErrInvalidData), errors.Is(err, domain.ErrInvalidStateTransition):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}
