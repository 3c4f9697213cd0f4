package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	for name, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	} {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "direct", remoteAddr: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted proxy ignored", remoteAddr: "203.0.113.7:5000", headers: map[string]string{"X-Forwarded-For": "1.1.1.1"}, want: "203.0.113.7"},
		{name: "trusted proxy xff", remoteAddr: "10.0.0.2:80", headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2"}, want: "198.51.100.1"},
		{name: "trusted proxy real ip", remoteAddr: "127.0.0.1:80", headers: map[string]string{"X-Real-IP": "198.51.100.9"}, want: "198.51.100.9"},
		{name: "invalid forwarded", remoteAddr: "127.0.0.1:80", headers: map[string]string{"X-Forwarded-For": "garbage"}, want: "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}

	if d.GetMetrics().InvalidIPAttempts != 1 {
		t.Errorf("InvalidIPAttempts = %d, want 1", d.GetMetrics().InvalidIPAttempts)
	}
}

func TestDetector_Inspect(t *testing.T) {
	d := NewDetector()

	clean := httptest.NewRequest(http.MethodGet, "/api/report?granularity=monthly", nil)
	clean.Header.Set("User-Agent", "curl/8.5.0")
	if _, ok := d.Inspect(clean); ok {
		t.Error("plain API request flagged")
	}

	for target, want := range map[string]string{
		"/../../etc/passwd":          ReasonPathProbe,
		"/.env":                      ReasonPathProbe,
		"/api/transactions?id=0x41":  ReasonQueryInjection,
		"/api/report?start=<script>": ReasonQueryInjection,
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.URL, _ = url.Parse(target)
		if reason, ok := d.Inspect(r); !ok || reason != want {
			t.Errorf("Inspect(%s) = %q, %v; want %q", target, reason, ok, want)
		}
	}

	scanner := httptest.NewRequest(http.MethodGet, "/", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	if reason, _ := d.Inspect(scanner); reason != ReasonScannerAgent {
		t.Errorf("scanner user agent reason = %q", reason)
	}

	trace := httptest.NewRequest("TRACE", "/", nil)
	if reason, _ := d.Inspect(trace); reason != ReasonUnusualMethod {
		t.Errorf("TRACE reason = %q", reason)
	}

	m := d.GetMetrics()
	if m.SuspiciousRequests != 6 {
		t.Errorf("SuspiciousRequests = %d, want 6", m.SuspiciousRequests)
	}
	if m.ByReason[ReasonPathProbe] != 2 || m.ByReason[ReasonQueryInjection] != 2 {
		t.Errorf("ByReason = %v", m.ByReason)
	}
}
