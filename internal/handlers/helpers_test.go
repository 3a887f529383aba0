package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HammerMeetNail/cotravels/internal/models"
	"github.com/HammerMeetNail/cotravels/internal/testutil"
)

// assertErrorResponse checks the status and the first reported message,
// reading {errors: [...]} for 4xx and {message: ...} for 5xx.
func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	testutil.AssertStatusCode(t, rr, status)
	if ct := rr.Result().Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected content type application/json, got %q", ct)
	}

	if status >= http.StatusInternalServerError {
		var response MessageResponse
		testutil.DecodeJSON(t, rr.Body.Bytes(), &response)
		if response.Message != message {
			t.Fatalf("expected message %q, got %q", message, response.Message)
		}
		return
	}

	var response ErrorResponse
	testutil.DecodeJSON(t, rr.Body.Bytes(), &response)
	if len(response.Errors) == 0 || response.Errors[0] != message {
		t.Fatalf("expected error %q, got %v", message, response.Errors)
	}
}

// asUser attaches user to the request context the way the auth middleware does.
func asUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(SetUserInContext(req.Context(), user))
}
