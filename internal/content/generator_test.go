package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"outreach_backend/platform/logger"
)

type aiTestConfig struct {
	baseURL string
}

func (c aiTestConfig) GetOpenAIAPIKey() string  { return "test-key" }
func (c aiTestConfig) GetOpenAIBaseURL() string { return c.baseURL }
func (c aiTestConfig) GetOpenAIModel() string   { return "gpt-4o-mini" }
func (c aiTestConfig) IsAIEnabled() bool        { return true }

func TestAIGeneratorFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	gen := New(aiTestConfig{baseURL: srv.URL + "/v1"}, logger.New("development"))

	msg, err := gen.Generate(context.Background(), Context{Template: "nurture_intro", LeadName: "Dr. Reyes", Step: 0})
	if err != nil {
		t.Fatalf("fallback path must not surface an error, got %v", err)
	}
	want, _ := StaticGenerator{}.Generate(context.Background(), Context{Template: "nurture_intro", LeadName: "Dr. Reyes", Step: 0})
	if msg.Subject != want.Subject || msg.Body != want.Body {
		t.Fatalf("expected static fallback content, got subject %q", msg.Subject)
	}
}

func TestAIGeneratorParsesSubjectConvention(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Subject: A quick hello\n\nHi Dr. Reyes, just checking in."}}]}`))
	}))
	defer srv.Close()

	gen := New(aiTestConfig{baseURL: srv.URL + "/v1"}, logger.New("development"))

	msg, err := gen.Generate(context.Background(), Context{Template: "nurture_intro", LeadName: "Dr. Reyes", Step: 0})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Subject != "A quick hello" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "checking in") {
		t.Fatalf("body = %q", msg.Body)
	}
}
