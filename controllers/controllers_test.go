package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bankdemo/config"
	"bankdemo/database"
	"bankdemo/models"
	"bankdemo/services"
	"bankdemo/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type testAPI struct {
	router  *gin.Engine
	db      *database.Database
	metrics *utils.Metrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	db, err := database.NewInMemory(logger)
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Seed(context.Background(), db.DB, logger); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.ExpiresIn = 1

	customers, err := services.NewCustomerService(db.UnitOfWork, logger)
	if err != nil {
		t.Fatalf("NewCustomerService() error = %v", err)
	}
	loans, err := services.NewLoanService(db.UnitOfWork, logger)
	if err != nil {
		t.Fatalf("NewLoanService() error = %v", err)
	}

	metrics := utils.NewMetrics("test")
	router := gin.New()
	RegisterRoutes(router.Group("/api"), cfg.JWT.SecretKey,
		NewAuthController(cfg, customers, metrics, logger),
		NewAccountController(customers, metrics, logger),
		NewLoanController(customers, loans, metrics, logger),
	)

	return &testAPI{router: router, db: db, metrics: metrics}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) signIn(t *testing.T, name string) string {
	t.Helper()

	rr := a.do(t, http.MethodPost, "/api/auth/signIn", "", map[string]string{"name": name})
	if rr.Code != http.StatusOK {
		t.Fatalf("signIn(%s) status = %d, body = %s", name, rr.Code, rr.Body.String())
	}
	var resp SignInResponse
	decode(t, rr, &resp)
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp.Token
}

func (a *testAPI) customer(t *testing.T, name string) *models.Customer {
	t.Helper()
	var c models.Customer
	if err := a.db.DB.Preload("Accounts").Where("first_name = ?", name).First(&c).Error; err != nil {
		t.Fatalf("load customer %s: %v", name, err)
	}
	return &c
}

func (a *testAPI) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var acc models.Account
	if err := a.db.DB.Where("account_id = ?", id).First(&acc).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	return acc.Balance
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var re services.ResultError
	decode(t, rr, &re)
	return re.Code
}

func TestSignIn(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/auth/signIn", "", map[string]string{"name": "anne"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp SignInResponse
	decode(t, rr, &resp)
	if resp.FirstName != "Anne" || resp.CustomerNumber != api.customer(t, "Anne").CustomerNumber {
		t.Errorf("response = %+v", resp)
	}
}

func TestSignInUnknownName(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/auth/signIn", "", map[string]string{"name": "Mallory"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	var re services.ResultError
	decode(t, rr, &re)
	if re.Message != "Not a valid name" {
		t.Errorf("message = %q", re.Message)
	}
}

func TestSignInValidation(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/auth/signIn", "", map[string]string{"name": ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSignInRequiresExactName(t *testing.T) {
	api := newTestAPI(t)

	for _, name := range []string{"Bob ", " Bob", "Bo", "  "} {
		rr := api.do(t, http.MethodPost, "/api/auth/signIn", "", map[string]string{"name": name})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("signIn(%q): status = %d, want %d", name, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/accounts", "/api/loans"} {
		if rr := api.do(t, http.MethodGet, path, "", nil); rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d", path, rr.Code)
		}
		if rr := api.do(t, http.MethodGet, path, "garbage", nil); rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s with bad token: status = %d", path, rr.Code)
		}
	}
}

func TestGetAccounts(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Bob")

	rr := api.do(t, http.MethodGet, "/api/accounts", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp AccountsResponse
	decode(t, rr, &resp)
	if len(resp.Accounts) != 2 || len(resp.Loans) != 0 {
		t.Fatalf("accounts = %d, loans = %d", len(resp.Accounts), len(resp.Loans))
	}
	if resp.Accounts[0].AccountType.Name != "Current" {
		t.Errorf("first account type = %q", resp.Accounts[0].AccountType.Name)
	}
}

func TestGetAccountDetail(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Bob")
	bob := api.customer(t, "Bob")
	current := bob.Accounts[0]

	rr := api.do(t, http.MethodGet, "/api/accounts/"+current.AccountID.String(), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp AccountDetailResponse
	decode(t, rr, &resp)
	if resp.Account.AccountID != current.AccountID || !resp.MaxTransferAmount.Equal(current.Balance) {
		t.Errorf("detail = %+v", resp)
	}
	if len(resp.AvailableAccounts) != 1 || resp.AvailableAccounts[0].AccountID != bob.Accounts[1].AccountID {
		t.Errorf("available accounts = %+v", resp.AvailableAccounts)
	}

	// Чужой счет не показывается
	anne := api.customer(t, "Anne")
	rr = api.do(t, http.MethodGet, "/api/accounts/"+anne.Accounts[0].AccountID.String(), token, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("foreign account status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = api.do(t, http.MethodGet, "/api/accounts/not-a-uuid", token, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestTransfer(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Bob")
	bob := api.customer(t, "Bob")
	source, target := bob.Accounts[0], bob.Accounts[1]

	rr := api.do(t, http.MethodPost, "/api/accounts/"+source.AccountID.String()+"/transfer", token, map[string]any{
		"target_account_id": target.AccountID,
		"amount":            "1000.50",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp TransferResponse
	decode(t, rr, &resp)
	amount := decimal.RequireFromString("1000.50")
	if want := source.Balance.Sub(amount); !resp.SourceBalance.Equal(want) {
		t.Errorf("source balance = %s, want %s", resp.SourceBalance, want)
	}
	if want := target.Balance.Add(amount); !api.balance(t, target.AccountID).Equal(want) {
		t.Errorf("stored target balance = %s, want %s", api.balance(t, target.AccountID), want)
	}
}

func TestTransferRoundsAmountToStorageScale(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Bob")
	bob := api.customer(t, "Bob")
	source, target := bob.Accounts[0], bob.Accounts[1]

	rr := api.do(t, http.MethodPost, "/api/accounts/"+source.AccountID.String()+"/transfer", token, map[string]any{
		"target_account_id": target.AccountID,
		"amount":            "10.123456",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp TransferResponse
	decode(t, rr, &resp)
	amount := decimal.RequireFromString("10.1235")
	if want := source.Balance.Sub(amount); !resp.SourceBalance.Equal(want) {
		t.Errorf("source balance = %s, want %s", resp.SourceBalance, want)
	}
	if got := api.balance(t, source.AccountID); !got.Equal(resp.SourceBalance) {
		t.Errorf("stored source balance = %s, response = %s", got, resp.SourceBalance)
	}
	if got := api.balance(t, target.AccountID); !got.Equal(resp.TargetBalance) {
		t.Errorf("stored target balance = %s, response = %s", got, resp.TargetBalance)
	}
}

func TestTransferRejected(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Bob")
	bob := api.customer(t, "Bob")
	anne := api.customer(t, "Anne")
	source := bob.Accounts[1] // Savings, 23045.55

	tests := []struct {
		name   string
		source uuid.UUID
		body   map[string]any
		status int
		code   string
	}{
		{
			name:   "missing amount",
			source: source.AccountID,
			body:   map[string]any{"target_account_id": bob.Accounts[0].AccountID},
			status: http.StatusBadRequest,
			code:   services.ErrNullValue.Code,
		},
		{
			name:   "negative amount",
			source: source.AccountID,
			body:   map[string]any{"target_account_id": bob.Accounts[0].AccountID, "amount": "-5"},
			status: http.StatusBadRequest,
			code:   "InvalidAmount",
		},
		{
			name:   "amount below storage scale",
			source: source.AccountID,
			body:   map[string]any{"target_account_id": bob.Accounts[0].AccountID, "amount": "0.00004"},
			status: http.StatusBadRequest,
			code:   "InvalidAmount",
		},
		{
			name:   "foreign target",
			source: source.AccountID,
			body:   map[string]any{"target_account_id": anne.Accounts[0].AccountID, "amount": "5"},
			status: http.StatusBadRequest,
			code:   "TransferRejected",
		},
		{
			name:   "foreign source",
			source: anne.Accounts[0].AccountID,
			body:   map[string]any{"target_account_id": source.AccountID, "amount": "5"},
			status: http.StatusBadRequest,
			code:   "TransferRejected",
		},
		{
			name:   "insufficient funds",
			source: source.AccountID,
			body:   map[string]any{"target_account_id": bob.Accounts[0].AccountID, "amount": "23045.56"},
			status: http.StatusBadRequest,
			code:   "InsufficientFunds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPost, "/api/accounts/"+tt.source.String()+"/transfer", token, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.status, rr.Body.String())
			}
			if code := errorCode(t, rr); code != tt.code {
				t.Errorf("code = %q, want %q", code, tt.code)
			}
		})
	}

	if got := api.balance(t, source.AccountID); !got.Equal(source.Balance) {
		t.Errorf("source balance = %s, want %s", got, source.Balance)
	}
	if got := api.balance(t, anne.Accounts[0].AccountID); !got.Equal(anne.Accounts[0].Balance) {
		t.Errorf("foreign balance = %s, want %s", got, anne.Accounts[0].Balance)
	}
}

func TestLoanForm(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Jim")

	rr := api.do(t, http.MethodGet, "/api/loans", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp LoanFormResponse
	decode(t, rr, &resp)
	if len(resp.Accounts) != 2 {
		t.Errorf("accounts = %d, want 2", len(resp.Accounts))
	}
	if len(resp.Durations) != 3 || resp.Durations[0] != 1 || resp.Durations[2] != 5 {
		t.Errorf("durations = %v, want [1 3 5]", resp.Durations)
	}
}

func TestLoanQuoteThenApprove(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Jim")
	jim := api.customer(t, "Jim")
	target := jim.Accounts[0]

	draft := map[string]any{
		"amount":     "1000",
		"duration":   3,
		"account_id": target.AccountID,
	}

	// Запрос ставки
	rr := api.do(t, http.MethodPost, "/api/loans", token, draft)
	if rr.Code != http.StatusOK {
		t.Fatalf("quote status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var quote LoanDraft
	decode(t, rr, &quote)
	if !quote.Requested || !quote.Approved || quote.Rate == nil || *quote.Rate != 15 {
		t.Fatalf("quote = %+v", quote)
	}
	if got := api.balance(t, target.AccountID); !got.Equal(target.Balance) {
		t.Errorf("balance changed by quote: %s", got)
	}

	// Оформление
	draft["approved"] = true
	rr = api.do(t, http.MethodPost, "/api/loans", token, draft)
	if rr.Code != http.StatusCreated {
		t.Fatalf("approve status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if want := target.Balance.Add(decimal.NewFromInt(1000)); !api.balance(t, target.AccountID).Equal(want) {
		t.Errorf("target balance = %s, want %s", api.balance(t, target.AccountID), want)
	}

	rr = api.do(t, http.MethodGet, "/api/accounts", token, nil)
	var accounts AccountsResponse
	decode(t, rr, &accounts)
	if len(accounts.Loans) != 1 || !accounts.Loans[0].Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("loans = %+v", accounts.Loans)
	}
}

func TestLoanQuoteBadRating(t *testing.T) {
	api := newTestAPI(t)
	token := api.signIn(t, "Bob")
	bob := api.customer(t, "Bob")

	rr := api.do(t, http.MethodPost, "/api/loans", token, map[string]any{
		"amount":     "1000",
		"duration":   3,
		"account_id": bob.Accounts[0].AccountID,
		"approved":   true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var draft LoanDraft
	decode(t, rr, &draft)
	if draft.Approved || !draft.Requested || draft.Rate != nil {
		t.Errorf("draft = %+v", draft)
	}
	if draft.Error == nil || draft.Error.Code != services.ErrBadRating.Code {
		t.Errorf("draft error = %+v, want %s", draft.Error, services.ErrBadRating.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrRecordNotFound, http.StatusNotFound},
		{services.ErrAccountNotFound, http.StatusNotFound},
		{services.ErrInvalidAccount, http.StatusUnprocessableEntity},
		{services.ErrBadRating, http.StatusUnprocessableEntity},
		{services.ErrNullValue, http.StatusBadRequest},
		{&services.ResultError{Code: "Error.TransferFunds"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
