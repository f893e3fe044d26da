package loandelivery

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodelaflor/loan/internal/domain"
	"github.com/alvarodelaflor/loan/internal/loanservice"
	"github.com/alvarodelaflor/loan/pkg/errorspkg"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("currency", ValidCurrency); err != nil {
			os.Exit(1)
		}
		if err := v.RegisterValidation("identity", ValidIdentity); err != nil {
			os.Exit(1)
		}
	}

	os.Exit(m.Run())
}

func testLoan(t *testing.T) domain.Loan {
	t.Helper()

	amount, err := domain.NewAmount(decimal.RequireFromString("25000.50"), "EUR")
	if err != nil {
		t.Fatalf("domain.NewAmount failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)

	return domain.Loan{
		ID:                uuid.New(),
		ApplicantName:     "Maria Garcia",
		ApplicantIdentity: "12345678Z",
		Amount:            amount,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		ModifiedAt:        now,
	}
}

func newTestServer(h Handler) *gin.Engine {
	server := gin.New()

	v1 := server.Group("/api/v1")
	v1.POST("/loans", h.Create)
	v1.GET("/loans", h.List)
	v1.GET("/loans/:id", h.Get)
	v1.GET("/loans/:id/history", h.History)
	v1.PATCH("/loans/:id/status", h.UpdateStatus)
	v1.GET("/loans/search/identity/:identity", h.ListByIdentity)
	v1.GET("/loans/search/criteria", h.Search)
	v1.DELETE("/loans/:id", h.Delete)

	return server
}

func TestCreateAPI(t *testing.T) {
	loan := testLoan(t)

	testCases := []struct {
		name           string
		body           gin.H
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			body: gin.H{
				"applicant_name":    loan.ApplicantName,
				"identity_document": "12345678Z",
				"amount":            "25000.50",
				"currency":          "EUR",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(loanservice.CreateParams{
						ApplicantName:    loan.ApplicantName,
						IdentityDocument: "12345678Z",
						Amount:           "25000.50",
						Currency:         "EUR",
					})).
					Times(1).
					Return(loan, nil)
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "InvalidIdentityRejectedByBinding",
			body: gin.H{
				"applicant_name":    loan.ApplicantName,
				"identity_document": "12345678A",
				"amount":            "25000.50",
				"currency":          "EUR",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "UnsupportedCurrencyRejectedByBinding",
			body: gin.H{
				"applicant_name":    loan.ApplicantName,
				"identity_document": "12345678Z",
				"amount":            "25000.50",
				"currency":          "XTS",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "MissingName",
			body: gin.H{
				"identity_document": "12345678Z",
				"amount":            "25000.50",
				"currency":          "EUR",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "ServiceRejectsAmount",
			body: gin.H{
				"applicant_name":    loan.ApplicantName,
				"identity_document": "12345678Z",
				"amount":            "-5",
				"currency":          "EUR",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Loan{}, domain.ErrInvalidData)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "InternalError",
			body: gin.H{
				"applicant_name":    loan.ApplicantName,
				"identity_document": "12345678Z",
				"amount":            "25000.50",
				"currency":          "EUR",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Loan{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newTestServer(NewHandler(service))

			body, err := json.Marshal(tc.body)
			if err != nil {
				t.Fatalf("json.Marshal failed: %v", err)
			}

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodPost, "/api/v1/loans", bytes.NewReader(body))
			server.ServeHTTP(recorder, request)

			if recorder.Code != tc.wantStatusCode {
				t.Errorf("status = %d, want %d, body %s", recorder.Code, tc.wantStatusCode, recorder.Body)
			}

			if tc.wantStatusCode == http.StatusCreated {
				var res struct {
					Data struct {
						Loan domain.Loan `json:"loan"`
					} `json:"data"`
				}

				if err := json.Unmarshal(recorder.Body.Bytes(), &res); err != nil {
					t.Fatalf("json.Unmarshal failed: %v", err)
				}

				if diff := cmp.Diff(loan, res.Data.Loan); diff != "" {
					t.Errorf("response loan mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestGetAPI(t *testing.T) {
	loan := testLoan(t)

	testCases := []struct {
		name           string
		id             string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			id:   loan.ID.String(),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(loan, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "NotFound",
			id:   loan.ID.String(),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(domain.Loan{}, domain.ErrLoanNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "InvalidUUID",
			id:   "not-a-uuid",
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newTestServer(NewHandler(service))

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/api/v1/loans/"+tc.id, nil)
			server.ServeHTTP(recorder, request)

			if recorder.Code != tc.wantStatusCode {
				t.Errorf("status = %d, want %d, body %s", recorder.Code, tc.wantStatusCode, recorder.Body)
			}
		})
	}
}

func TestUpdateStatusAPI(t *testing.T) {
	loan := testLoan(t)

	testCases := []struct {
		name           string
		status         string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name:   "Approve",
			status: "APPROVED",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Approve(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(loan, nil)
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:   "Reject",
			status: "REJECTED",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Reject(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(loan, nil)
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:   "Cancel",
			status: "CANCELLED",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Cancel(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(loan, nil)
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:   "IllegalTransition",
			status: "CANCELLED",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Cancel(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(domain.Loan{}, domain.ErrInvalidStateTransition)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:   "BackToPending",
			status: "PENDING",
			buildStubs: func(service *MockService) {
				service.EXPECT().Approve(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:   "UnknownStatus",
			status: "FROZEN",
			buildStubs: func(service *MockService) {
				service.EXPECT().Approve(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:   "NotFound",
			status: "APPROVED",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Approve(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(domain.Loan{}, domain.ErrLoanNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newTestServer(NewHandler(service))

			body, err := json.Marshal(gin.H{"status": tc.status})
			if err != nil {
				t.Fatalf("json.Marshal failed: %v", err)
			}

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodPatch, "/api/v1/loans/"+loan.ID.String()+"/status", bytes.NewReader(body))
			server.ServeHTTP(recorder, request)

			if recorder.Code != tc.wantStatusCode {
				t.Errorf("status = %d, want %d, body %s", recorder.Code, tc.wantStatusCode, recorder.Body)
			}
		})
	}
}

func TestListByIdentityAPI(t *testing.T) {
	loan := testLoan(t)

	testCases := []struct {
		name           string
		identity       string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name:     "OK",
			identity: "12345678Z",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					ListByIdentity(gomock.Any(), gomock.Eq("12345678Z")).
					Times(1).
					Return([]domain.Loan{loan}, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:     "NoLoans",
			identity: "12345678Z",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					ListByIdentity(gomock.Any(), gomock.Eq("12345678Z")).
					Times(1).
					Return(nil, domain.ErrLoanNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:     "InvalidIdentity",
			identity: "12345678A",
			buildStubs: func(service *MockService) {
				service.EXPECT().ListByIdentity(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newTestServer(NewHandler(service))

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/api/v1/loans/search/identity/"+tc.identity, nil)
			server.ServeHTTP(recorder, request)

			if recorder.Code != tc.wantStatusCode {
				t.Errorf("status = %d, want %d, body %s", recorder.Code, tc.wantStatusCode, recorder.Body)
			}
		})
	}
}

func TestSearchAPI(t *testing.T) {
	loan := testLoan(t)

	start := time.Date(2026, 2, 7, 17, 51, 37, 0, time.UTC)
	end := time.Date(2026, 2, 8, 17, 51, 37, 0, time.UTC)

	testCases := []struct {
		name           string
		query          string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name:  "IdentityAndRange",
			query: "?applicantIdentity=12345678Z&startDate=2026-02-07T17:51:37Z&endDate=2026-02-08T17:51:37Z",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Search(gomock.Any(), gomock.Eq(domain.Filter{
						Identity:  "12345678Z",
						StartDate: start,
						EndDate:   end,
					})).
					Times(1).
					Return([]domain.Loan{loan}, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "IdentityOnly",
			query: "?applicantIdentity=12345678Z",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Search(gomock.Any(), gomock.Eq(domain.Filter{Identity: "12345678Z"})).
					Times(1).
					Return([]domain.Loan{loan}, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "BadStartDate",
			query: "?startDate=yesterday",
			buildStubs: func(service *MockService) {
				service.EXPECT().Search(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:  "NoMatches",
			query: "?applicantIdentity=12345678Z",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Search(gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, domain.ErrLoanNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newTestServer(NewHandler(service))

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/api/v1/loans/search/criteria"+tc.query, nil)
			server.ServeHTTP(recorder, request)

			if recorder.Code != tc.wantStatusCode {
				t.Errorf("status = %d, want %d, body %s", recorder.Code, tc.wantStatusCode, recorder.Body)
			}
		})
	}
}

func TestHistoryAPI(t *testing.T) {
	loan := testLoan(t)

	approved := loan
	approved.Status = domain.StatusApproved

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)
	service.EXPECT().
		History(gomock.Any(), gomock.Eq(loan.ID)).
		Times(1).
		Return([]domain.Loan{loan, approved}, nil)

	server := newTestServer(NewHandler(service))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/v1/loans/"+loan.ID.String()+"/history", nil)
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", recorder.Code, http.StatusOK, recorder.Body)
	}

	var res struct {
		Data struct {
			Loans []domain.Loan `json:"loans"`
		} `json:"data"`
	}

	if err := json.Unmarshal(recorder.Body.Bytes(), &res); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}

	if diff := cmp.Diff([]domain.Loan{loan, approved}, res.Data.Loans); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteAPI(t *testing.T) {
	loan := testLoan(t)

	testCases := []struct {
		name           string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Delete(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(nil)
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "NotFound",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Delete(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(domain.ErrLoanNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "InternalError",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Delete(gomock.Any(), gomock.Eq(loan.ID)).
					Times(1).
					Return(errors.New("store down"))
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newTestServer(NewHandler(service))

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodDelete, "/api/v1/loans/"+loan.ID.String(), nil)
			server.ServeHTTP(recorder, request)

			if recorder.Code != tc.wantStatusCode {
				t.Errorf("status = %d, want %d, body %s", recorder.Code, tc.wantStatusCode, recorder.Body)
			}
		})
	}
}

func TestListAPI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)
	service.EXPECT().
		List(gomock.Any()).
		Times(1).
		Return([]domain.Loan{}, nil)

	server := newTestServer(NewHandler(service))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want %d, body %s", recorder.Code, http.StatusOK, recorder.Body)
	}
}
