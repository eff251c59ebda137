package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dom/chatbot-web/internal/api/middleware"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/service"
	"github.com/dom/chatbot-web/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(resp *http.Response, name string) *http.Cookie {
	var last *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == name {
			last = c
		}
	}
	return last
}

func TestAuthHandler_Signup(t *testing.T) {
	ts := testutil.NewTestServer(t)

	testutil.NewUserBuilder().WithEmail("existing@example.com").Build(t, ts.Repos.User)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful signup",
			request: map[string]string{
				"name":     "Ann",
				"email":    "ann@example.com",
				"password": "pw123",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result testutil.AuthResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, "OK", result.Message)
				assert.Equal(t, "Ann", result.Name)
				assert.Equal(t, "ann@example.com", result.Email)

				cookie := sessionCookie(resp, ts.Config.CookieName)
				require.NotNil(t, cookie)
				assert.True(t, strings.HasPrefix(cookie.Value, "s:"))
				assert.True(t, cookie.HttpOnly)
				assert.Equal(t, "/", cookie.Path)
				assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), cookie.Expires, time.Minute)
			},
		},
		{
			name:           "missing name",
			request:        map[string]string{"email": "x@example.com", "password": "pw123"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing password",
			request:        map[string]string{"name": "X", "email": "x@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate email",
			request: map[string]string{
				"name":     "Again",
				"email":    "existing@example.com",
				"password": "pw123",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "empty request body",
			request:        map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "password longer than 72 bytes",
			request: map[string]string{
				"name":     "Long",
				"email":    "long@example.com",
				"password": strings.Repeat("p", 80),
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp *http.Response) {
				testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, service.ErrPasswordTooLong.Error())
				assert.Nil(t, sessionCookie(resp, ts.Config.CookieName))

				_, err := ts.Repos.User.GetByEmail(context.Background(), "long@example.com")
				assert.ErrorIs(t, err, domain.ErrUserNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.request)
			resp, err := http.Post(ts.APIURL("/user/signup"), "application/json", bytes.NewBuffer(body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_SignupMalformedJSON(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Post(ts.APIURL("/user/signup"), "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "invalid request body")
}

func TestAuthHandler_SignupOversizedBody(t *testing.T) {
	ts := testutil.NewTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"name":     strings.Repeat("n", 10<<10),
		"email":    "big@example.com",
		"password": "pw123",
	})
	resp, err := http.Post(ts.APIURL("/user/signup"), "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertErrorResponse(t, resp, http.StatusRequestEntityTooLarge, "too large")
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)

	// Create a user for login tests
	user, rawPassword := testutil.NewUserBuilder().
		WithEmail("login@example.com").
		WithPassword("correctpassword").
		Build(t, ts.Repos.User)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		expectedCause  string
	}{
		{
			name:           "successful login",
			request:        map[string]string{"email": user.Email, "password": rawPassword},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			request:        map[string]string{"email": user.Email, "password": "wrongpassword"},
			expectedStatus: http.StatusForbidden,
			expectedCause:  service.ErrIncorrectPassword.Error(),
		},
		{
			name:           "non-existent user",
			request:        map[string]string{"email": "nobody@example.com", "password": "anypassword"},
			expectedStatus: http.StatusUnauthorized,
			expectedCause:  service.ErrUserNotRegistered.Error(),
		},
		{
			name:           "missing password",
			request:        map[string]string{"email": user.Email},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.request)
			resp, err := http.Post(ts.APIURL("/user/login"), "application/json", bytes.NewBuffer(body))
			require.NoError(t, err)
			defer resp.Body.Close()

			if tt.expectedCause != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedCause)
				assert.Nil(t, sessionCookie(resp, ts.Config.CookieName))
				return
			}

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				var result testutil.AuthResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, user.Name, result.Name)
				assert.Equal(t, user.Email, result.Email)
			}
		})
	}
}

func TestAuthHandler_AuthStatus(t *testing.T) {
	ts := testutil.NewTestServer(t)

	// Create and authenticate a user
	user, client := testutil.NewUserBuilder().
		WithName("Status User").
		BuildAndAuthenticate(t, ts)

	t.Run("valid session", func(t *testing.T) {
		resp := testutil.DoJSON(t, client, http.MethodGet, ts.APIURL("/user/auth-status"), nil)
		defer resp.Body.Close()

		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var result testutil.AuthResponse
		testutil.AssertJSONResponse(t, resp, &result)
		assert.Equal(t, user.Name, result.Name)
		assert.Equal(t, user.Email, result.Email)
	})

	claims := func(subject, email string, expires time.Time) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
			Email: email,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				ExpiresAt: jwt.NewNumericDate(expires),
			},
		}).SignedString([]byte(ts.Config.JWTSecret))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name   string
		cookie string
	}{
		{name: "missing cookie", cookie: ""},
		{name: "unsigned cookie", cookie: claims(user.ID.String(), user.Email, time.Now().Add(time.Hour))},
		{name: "tampered signature", cookie: middleware.SignCookieValue(claims(user.ID.String(), user.Email, time.Now().Add(time.Hour)), "wrong-secret")},
		{name: "expired token", cookie: middleware.SignCookieValue(claims(user.ID.String(), user.Email, time.Now().Add(-time.Minute)), ts.Config.CookieSecret)},
		{name: "user gone", cookie: middleware.SignCookieValue(claims(uuid.New().String(), "ghost@example.com", time.Now().Add(time.Hour)), ts.Config.CookieSecret)},
		{name: "garbage token", cookie: middleware.SignCookieValue("notajwt", ts.Config.CookieSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodGet, ts.APIURL("/user/auth-status"), nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: ts.Config.CookieName, Value: tt.cookie})
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
		})
	}
}

func TestAuthHandler_LoginReplacesSession(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, client := testutil.NewUserBuilder().WithPassword("pw123").BuildAndAuthenticate(t, ts)

	resp := testutil.DoJSON(t, client, http.MethodPost, ts.APIURL("/user/login"), map[string]string{
		"email":    user.Email,
		"password": "pw123",
	})
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	// The response clears the old cookie and then sets the new one.
	var names []string
	for _, c := range resp.Cookies() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{ts.Config.CookieName, ts.Config.CookieName}, names)
	assert.Equal(t, -1, resp.Cookies()[0].MaxAge)
	testutil.AssertSessionCookie(t, client, ts.BaseURL(), ts.Config.CookieName, true)
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, client := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := testutil.DoJSON(t, client, http.MethodGet, ts.APIURL("/user/logout"), nil)
	resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertSessionCookie(t, client, ts.BaseURL(), ts.Config.CookieName, false)

	resp = testutil.DoJSON(t, client, http.MethodGet, ts.APIURL("/user/auth-status"), nil)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
}
