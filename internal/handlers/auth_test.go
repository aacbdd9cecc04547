package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/hrops/backend/internal/middleware"
	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/validators"
)

type stubVerifier struct {
	token *auth.Token
	err   error
}

func (v stubVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return v.token, v.err
}

type tokenBody struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *HandlerSuite) signup(name, email string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/api/v1/auth/signup", echoMap{"name": name, "email": email, "password": "correct-horse"}, nil)
}

func (s *HandlerSuite) TestFirstSignupBecomesAdmin() {
	s.Require().NoError(s.db.Exec("DELETE FROM users").Error)

	var body tokenBody
	rec := s.signup("Founder", "founder@example.com")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.decode(rec, &body)
	s.Equal(models.RoleAdmin, body.User.Role)
	s.True(body.User.IsActive)

	claims, err := middleware.ParseToken("test-secret", body.Token)
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, claims.Role)

	rec = s.signup("Second", "second@example.com")
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.decode(rec, &body)
	s.Equal(models.RoleEmployee, body.User.Role)

	rec = s.signup("Again", "second@example.com")
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestSignInRejectsDeactivatedAccount() {
	s.Require().Equal(http.StatusCreated, s.signup("Dana", "dana@example.com").Code)
	creds := echoMap{"email": "dana@example.com", "password": "correct-horse"}

	rec := s.do(http.MethodPost, "/api/v1/auth/signin", creds, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/auth/signin", echoMap{"email": "dana@example.com", "password": "wrong-horse"}, nil).Code)

	user, err := s.users.GetUserByEmail("dana@example.com")
	s.Require().NoError(err)
	user.IsActive = false
	s.Require().NoError(s.users.UpdateUser(user))

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/api/v1/auth/signin", creds, nil).Code)
}

func (s *HandlerSuite) TestFirebaseLoginDisabledWithoutClient() {
	rec := s.do(http.MethodPost, "/api/v1/auth/firebase-login", echoMap{"idToken": "x"}, nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerSuite) firebaseServer(v IDTokenVerifier) *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	NewAuthHandler(s.users, v, "test-secret").RegisterAuthRoutes(e.Group("/auth"))
	return e
}

func (s *HandlerSuite) TestFirebaseLoginLinksExistingAccount() {
	e := s.firebaseServer(stubVerifier{token: &auth.Token{
		UID:    "fb-alice",
		Claims: map[string]interface{}{"email": s.alice.Email, "name": "Alice"},
	}})

	req := httptest.NewRequest(http.MethodPost, "/auth/firebase-login", strings.NewReader(`{"idToken":"abc"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	user, err := s.users.GetUserByFirebaseUID("fb-alice")
	s.Require().NoError(err)
	s.Equal(s.alice.ID, user.ID)
}

func (s *HandlerSuite) TestFirebaseLoginInvalidToken() {
	e := s.firebaseServer(stubVerifier{err: errors.New("expired")})

	req := httptest.NewRequest(http.MethodPost, "/auth/firebase-login", strings.NewReader(`{"idToken":"abc"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
