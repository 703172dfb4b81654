package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"telecom-bundle-chat/internal/catalog"
	"telecom-bundle-chat/internal/config"
	"telecom-bundle-chat/internal/database/dbtest"
	"telecom-bundle-chat/internal/models"
	"telecom-bundle-chat/internal/service"
)

type failingCompleter struct{}

func (failingCompleter) Complete(ctx context.Context, system, message string) (string, error) {
	return "", errors.New("upstream timeout")
}

func setupTestHandler(t *testing.T, opts service.Options) *Handler {
	t.Helper()

	db := dbtest.NewSeededDB(t)
	svc := service.NewService(db, catalog.New(db, catalog.Options{}), opts)
	return NewHandler(svc)
}

func setupRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/chat", h.Chat)
	return r
}

func postChat(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("POST", "/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var response models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	return response.Detail
}

func TestRoot(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	var first string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		if i == 0 {
			first = rr.Body.String()
		} else if rr.Body.String() != first {
			t.Errorf("Expected identical payloads, got %q and %q", first, rr.Body.String())
		}
	}

	var response models.StatusResponse
	if err := json.Unmarshal([]byte(first), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != "ok" || !strings.Contains(response.Message, "POST /chat") {
		t.Errorf("Unexpected response: %+v", response)
	}
}

func TestHealthCheck(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var response models.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != "ok" || response.Service != "telecom-bundle-chat" {
		t.Errorf("Unexpected response: %+v", response)
	}
}

func TestChat_Success(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	rr := postChat(t, r, `{"phone":"0700000001","message":"check my balance"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if raw["reply"] != "Amina, your airtime balance is: 0.0" {
		t.Errorf("Unexpected reply %v", raw["reply"])
	}
	if _, ok := raw["user"]; ok {
		t.Error("Expected no user field outside profile queries")
	}
}

func TestChat_ProfileIncludesUser(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	rr := postChat(t, r, `{"phone":"0700000002","message":"Show my profile"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.ChatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.User == nil || response.User.Name != "Brian" {
		t.Errorf("Expected Brian's record, got %+v", response.User)
	}
}

func TestChat_UserNotFound(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	rr := postChat(t, r, `{"phone":"0799999999","message":"who am i"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
	if detail := decodeError(t, rr); detail != "User not found" {
		t.Errorf("Unexpected detail %q", detail)
	}
}

func TestChat_UnknownPhoneShapes(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	for _, phone := range []string{"unknown", "12", "070 000 0009", ""} {
		t.Run(phone, func(t *testing.T) {
			rr := postChat(t, r, `{"phone":"`+phone+`","message":"who am i"}`)
			if rr.Code != http.StatusNotFound {
				t.Fatalf("Expected status 404, got %d. Body: %s", rr.Code, rr.Body.String())
			}
			if detail := decodeError(t, rr); detail != "User not found" {
				t.Errorf("Unexpected detail %q", detail)
			}
		})
	}
}

func TestChat_EmptyMessageGreets(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	rr := postChat(t, r, `{"phone":"0700000001","message":""}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.ChatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !strings.HasPrefix(response.Reply, "Hello Amina!") {
		t.Errorf("Expected greeting, got %q", response.Reply)
	}
}

func TestChat_ValidationFailures(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{}))

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"invalid json", `invalid json`},
		{"missing phone", `{"message":"hi"}`},
		{"missing message", `{"phone":"0700000001"}`},
		{"wrong type", `{"phone":700000001,"message":"hi"}`},
		{"null phone", `{"phone":null,"message":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postChat(t, r, tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Errorf("Expected status 422, got %d. Body: %s", rr.Code, rr.Body.String())
			}
			if decodeError(t, rr) == "" {
				t.Error("Expected error detail in response")
			}
		})
	}
}

func TestChat_BodyTooLarge(t *testing.T) {
	db := dbtest.NewSeededDB(t)
	svc := service.NewService(db, catalog.New(db, catalog.Options{}), service.Options{})
	r := setupRouter(NewHandlerWithOptions(svc, NewHandlerOptions{MaxBodySize: 64}))

	rr := postChat(t, r, `{"phone":"0700000001","message":"`+strings.Repeat("a", 200)+`"}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", rr.Code)
	}
}

func TestChat_CompletionFailure(t *testing.T) {
	r := setupRouter(setupTestHandler(t, service.Options{
		Mode:      config.ModeCompletion,
		Completer: failingCompleter{},
	}))

	rr := postChat(t, r, `{"message":"hello","metadata":{"name":"Amina"}}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}
	if detail := decodeError(t, rr); detail != "generation error: upstream timeout" {
		t.Errorf("Unexpected detail %q", detail)
	}
}
