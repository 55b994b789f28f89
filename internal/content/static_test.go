package content

import (
	"context"
	"strings"
	"testing"
)

func TestStaticGeneratorKnownTemplate(t *testing.T) {
	msg, err := StaticGenerator{}.Generate(context.Background(), Context{
		Template: "nurture_intro",
		LeadName: "Sunrise Dental",
	})
	if err != nil {
		t.Fatalf("static generation must not fail: %v", err)
	}
	if !strings.Contains(msg.Body, "Sunrise Dental") {
		t.Fatalf("expected body to address the lead, got %q", msg.Body)
	}
	if msg.Subject == "" {
		t.Fatalf("expected a subject")
	}
}

func TestStaticGeneratorUnknownTemplateFallsBack(t *testing.T) {
	msg, err := StaticGenerator{}.Generate(context.Background(), Context{Template: "no_such_key"})
	if err != nil {
		t.Fatalf("static generation must not fail: %v", err)
	}
	if msg.Body == "" {
		t.Fatalf("expected generic fallback body")
	}
	if !strings.Contains(msg.Body, "there") {
		t.Fatalf("expected nameless lead to be addressed generically, got %q", msg.Body)
	}
}

func TestSplitSubject(t *testing.T) {
	subject, body := splitSubject("Subject: Hello\n\nBody text here.")
	if subject != "Hello" {
		t.Fatalf("expected subject Hello, got %q", subject)
	}
	if body != "Body text here." {
		t.Fatalf("unexpected body %q", body)
	}

	subject, body = splitSubject("no subject convention")
	if subject != "" || body != "no subject convention" {
		t.Fatalf("expected raw passthrough, got %q / %q", subject, body)
	}
}
