package testing

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// HTTPErrorPayload is a shape of an error response body
type HTTPErrorPayload struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"error"`
	Message    string `json:"message"`
}

// NewHTTPErrorPayload creates an expected error payload
func NewHTTPErrorPayload(statusCode int, status string, message string) HTTPErrorPayload {
	return HTTPErrorPayload{StatusCode: statusCode, Status: status, Message: message}
}

// AssertHTTPErrorResponse checks that recorder holds the error response
func AssertHTTPErrorResponse(t *testing.T, want HTTPErrorPayload, recorder *httptest.ResponseRecorder) bool {
	if !assert.Equal(t, want.StatusCode, recorder.Code) {
		return false
	}
	var got HTTPErrorPayload
	if !JSONUnmarshalReader(t, recorder.Body, &got) {
		return false
	}
	return assert.Equal(t, want, got)
}
