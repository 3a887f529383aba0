// Package testutil provides helpers shared by handler and middleware tests.
package testutil

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/HammerMeetNail/cotravels/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// AssertContains fails the test if s does not contain substr.
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to contain %q", msg, s, substr)
	}
}

// DecodeJSON parses a response body into dst.
func DecodeJSON(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, dst); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", body, err)
	}
}

// NewJSONRequest builds a request whose body is data encoded as JSON.
func NewJSONRequest(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRawRequest builds a JSON request from a literal body.
func NewRawRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewUploadRequest builds a multipart request carrying data in field.
func NewUploadRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "upload.bin")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// NewUser returns an active user with defaults filled in.
func NewUser(username string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:                    uuid.New(),
		Name:                  "Test User",
		Username:              username,
		Email:                 username + "@example.com",
		TravelPreferences:     []string{},
		LanguagesSpoken:       []string{},
		VerificationStatus:    "unverified",
		FriendsListPrivacy:    models.FriendsListPublic,
		FriendRequestsPrivacy: models.FriendRequestsEveryone,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// FindCookie returns the named cookie set on the response, or nil.
func FindCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
