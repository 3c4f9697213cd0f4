package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		query     string
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{"defaults", "", 2026, 10, false},
		{"year and month", "year=2025&month=3", 2025, 3, false},
		{"month only", "month=12", 2026, 12, false},
		{"whitespace", "year=%202024%20", 2024, 10, false},
		{"out of range left to services", "month=13", 2026, 13, false},
		{"bad year", "year=abc", 0, 0, true},
		{"bad month", "month=1.5", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseMonthParams(q, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonthParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("ParseMonthParams() = %+v, want %d-%d", got, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseFloatParam(t *testing.T) {
	q := url.Values{"rate": {"36,5"}, "bad": {"x"}}

	if got, err := ParseFloatParam(q, "rate", 0); err != nil || got != 36.5 {
		t.Errorf("rate = %v, %v; want 36.5", got, err)
	}
	if got, err := ParseFloatParam(q, "missing", 7); err != nil || got != 7 {
		t.Errorf("missing = %v, %v; want default 7", got, err)
	}
	if _, err := ParseFloatParam(q, "bad", 0); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"ok"}`, ""},
		{"empty", ``, "empty"},
		{"malformed", `{"name":`, "malformed"},
		{"unknown field", `{"other":1}`, "malformed"},
		{"two objects", `{"name":"a"}{"name":"b"}`, "single JSON object"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("DecodeJSON() error = %v", err)
				}
				if p.Name != "ok" {
					t.Errorf("Name = %q", p.Name)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("DecodeJSON() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":        "hello",
		"a\x00b\x07c":      "abc",
		"tab\tkept":        "tab\tkept",
		"line\nbreak":      "line\nbreak",
		"":                 "",
		"\x01\x02":         "",
		"Teléfono":         "Teléfono",
		" Ahorro General ": "Ahorro General",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProfileID(t *testing.T) {
	s := &Server{cfg: Config{ProfileID: "default"}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := s.profileID(req); got != "default" {
		t.Errorf("profileID() = %q, want default", got)
	}

	req.Header.Set(HeaderProfileID, " ana ")
	if got := s.profileID(req); got != "ana" {
		t.Errorf("profileID() = %q, want ana", got)
	}
}
