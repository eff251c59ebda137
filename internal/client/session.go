package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
)

type sessionFile struct {
	BaseURL string         `json:"baseUrl"`
	Cookies []storedCookie `json:"cookies"`
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SessionStore keeps the cookies of one backend in a file so a session
// survives between CLI invocations.
type SessionStore struct {
	path    string
	baseURL *url.URL
}

func NewSessionStore(path, baseURL string) (*SessionStore, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	return &SessionStore{path: path, baseURL: u}, nil
}

// DefaultSessionPath returns ~/.config/chatbot/session.json (or the OS
// equivalent).
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatbot", "session.json"), nil
}

// Load returns a cookie jar primed with the stored cookies. A missing file, or
// one written for another server, yields an empty jar.
func (s *SessionStore) Load() (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if file.BaseURL != s.baseURL.String() {
		return jar, nil
	}

	cookies := make([]*http.Cookie, 0, len(file.Cookies))
	for _, c := range file.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(s.baseURL, cookies)
	return jar, nil
}

// Save writes the jar's cookies for the server. An empty jar removes the file.
func (s *SessionStore) Save(jar http.CookieJar) error {
	cookies := jar.Cookies(s.baseURL)
	if len(cookies) == 0 {
		return s.Clear()
	}

	file := sessionFile{BaseURL: s.baseURL.String()}
	for _, c := range cookies {
		file.Cookies = append(file.Cookies, storedCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
