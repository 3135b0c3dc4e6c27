package utils

import (
	"strings"
	"testing"
	"time"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"john@mit.edu", "a.b+c@sub.college.ac.in", "x@y.co"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("Expected %q to be valid", e)
		}
	}
	invalid := []string{"", "john", "john@", "@mit.edu", "john@mit", "jo hn@mit.edu"}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("Expected %q to be invalid", e)
		}
	}
}

func TestEmailDomain(t *testing.T) {
	cases := map[string]string{
		"john@MIT.edu":     "mit.edu",
		"a@sub.college.in": "sub.college.in",
		"broken":           "",
		"a@b@c.edu":        "",
		"trailing@":        "",
	}
	for in, want := range cases {
		if got := EmailDomain(in); got != want {
			t.Errorf("EmailDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCalculateHotScore(t *testing.T) {
	now := time.Now()

	// 零互动 -> 零分
	if got := CalculateHotScore(now, 0, 0, 0); got != 0 {
		t.Errorf("Expected 0 score with no interactions, got %f", got)
	}

	// 互动越多分越高
	low := CalculateHotScore(now, 1, 1, 10)
	high := CalculateHotScore(now, 10, 5, 200)
	if high <= low {
		t.Errorf("Expected more interactions to score higher: %f <= %f", high, low)
	}

	// 同样互动，新问题压过旧问题
	fresh := CalculateHotScore(now.Add(-1*time.Hour), 5, 3, 100)
	stale := CalculateHotScore(now.Add(-72*time.Hour), 5, 3, 100)
	if fresh <= stale {
		t.Errorf("Expected fresh question to outrank stale one: %f <= %f", fresh, stale)
	}
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := RenderMarkdown("**bold** <script>alert(1)</script>")
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("Expected markdown rendered, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("Expected script stripped, got %q", out)
	}
}

func TestSanitizeText(t *testing.T) {
	out := SanitizeText(`Lost <b>wallet</b> <img src=x onerror=alert(1)>near gym`)
	if strings.Contains(out, "<") {
		t.Errorf("Expected all tags stripped, got %q", out)
	}
	if !strings.Contains(out, "Lost") || !strings.Contains(out, "near gym") {
		t.Errorf("Expected text content preserved, got %q", out)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("Expected password to be hashed")
	}
	if !CheckPasswordHash("s3cret-pass", hash) {
		t.Error("Expected matching password to verify")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("Expected wrong password to fail")
	}
}
