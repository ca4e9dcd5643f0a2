package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/pushbell/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestSuccessWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessWithMeta(ctx, http.StatusOK, []string{"a", "b"}, &Meta{Total: 2, Unread: 1})

	resp := decode(t, rec)
	if !resp.Success {
		t.Fatal("expected success flag to be true")
	}
	if resp.Meta == nil || resp.Meta.Total != 2 || resp.Meta.Unread != 1 {
		t.Fatalf("unexpected meta: %+v", resp.Meta)
	}
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, appErrors.ErrNotFound)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Success || resp.Error == nil || resp.Error.Code != appErrors.ErrNotFound.Code {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestErrorWithPlainErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("redis: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp.Error.Message != appErrors.ErrInternalServer.Message {
		t.Fatalf("expected generic message, got %q", resp.Error.Message)
	}
}
