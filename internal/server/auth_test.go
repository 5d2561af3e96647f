package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/scribechat/scribechat/internal/store"
)

func newAuthEcho(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	e := echo.New()
	h := &AuthHandler{Store: &store.Store{DB: db}, Secret: []byte("test-secret")}
	h.Register(e.Group("/api/auth"))
	return e, mock
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSignupCreatesUser(t *testing.T) {
	e, mock := newAuthEcho(t)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("alice@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := postJSON(e, "/api/auth/signup", `{"email":"alice@example.com","password":"hunter2hunter2"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	e, mock := newAuthEcho(t)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("alice@example.com", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	rec := postJSON(e, "/api/auth/signup", `{"email":"alice@example.com","password":"hunter2hunter2"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestSignupShortPasswordRejected(t *testing.T) {
	e, _ := newAuthEcho(t)
	rec := postJSON(e, "/api/auth/signup", `{"email":"alice@example.com","password":"short"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestLoginReturnsTokenAndCookie(t *testing.T) {
	e, mock := newAuthEcho(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, password_hash FROM users`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow("user-1", string(hash)))

	rec := postJSON(e, "/api/auth/login", `{"email":"alice@example.com","password":"hunter2hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("token response: %v %q", err, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	found := false
	for _, ck := range cookies {
		if ck.Name == "auth" && ck.Value == resp.Token && ck.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("auth cookie missing or wrong: %+v", cookies)
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	e, mock := newAuthEcho(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, password_hash FROM users`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow("user-1", string(hash)))

	rec := postJSON(e, "/api/auth/login", `{"email":"alice@example.com","password":"hunter2hunter2"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestLoginUnknownEmailUnauthorized(t *testing.T) {
	e, mock := newAuthEcho(t)
	mock.ExpectQuery(`SELECT id, password_hash FROM users`).
		WithArgs("nobody@example.com").
		WillReturnError(sqlmock.ErrCancelled)

	rec := postJSON(e, "/api/auth/login", `{"email":"nobody@example.com","password":"hunter2hunter2"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}
