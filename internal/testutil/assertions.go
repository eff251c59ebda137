package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies the error envelope with expected status and cause
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedCause string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var envelope ErrorResponse
	AssertJSONResponse(t, resp, &envelope)
	assert.Equal(t, "ERROR", envelope.Message)
	assert.Contains(t, envelope.Cause, expectedCause, "error cause mismatch")
}

// AssertConversation compares role and content of messages in order
func AssertConversation(t *testing.T, expected, actual []domain.Message) {
	t.Helper()

	require.Len(t, actual, len(expected), "unexpected conversation length")
	for i := range expected {
		assert.Equal(t, expected[i].Role, actual[i].Role, "role mismatch at %d", i)
		assert.Equal(t, expected[i].Content, actual[i].Content, "content mismatch at %d", i)
	}
}

// AssertSessionCookie checks the client holds a non-empty cookie with the given name
func AssertSessionCookie(t *testing.T, client *http.Client, rawURL, name string, present bool) {
	t.Helper()

	found := false
	for _, c := range cookiesFor(t, client, rawURL) {
		if c.Name == name && c.Value != "" {
			found = true
		}
	}
	assert.Equal(t, present, found, "session cookie presence mismatch")
}

func cookiesFor(t *testing.T, client *http.Client, rawURL string) []*http.Cookie {
	t.Helper()

	if client.Jar == nil {
		return nil
	}
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return client.Jar.Cookies(u)
}
