package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// Reasons reported by Inspect.
const (
	ReasonPathProbe      = "path_probe"
	ReasonQueryInjection = "query_injection"
	ReasonScannerAgent   = "scanner_agent"
	ReasonUnusualMethod  = "unusual_method"
	ReasonOversizedURL   = "oversized_url"
	ReasonForwardedChain = "forwarded_chain"
)

const (
	maxURLLength       = 2048
	maxForwardedHops   = 6
	defaultTrustedNets = "127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"
)

var (
	probePatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
	}
	injectionPatterns = []string{
		"eval(", "javascript:", "<script", "union select", "base64", "0x",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab", "scanner",
	}
	unusualMethods = map[string]bool{
		"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
	}
)

type rule struct {
	reason string
	match  func(r *http.Request) bool
}

var rules = []rule{
	{ReasonPathProbe, func(r *http.Request) bool {
		path := strings.ToLower(r.URL.Path)
		return containsAny(path, probePatterns) || containsAny(path, injectionPatterns)
	}},
	{ReasonQueryInjection, func(r *http.Request) bool {
		query := strings.ToLower(r.URL.RawQuery)
		return containsAny(query, injectionPatterns) || containsAny(query, probePatterns)
	}},
	{ReasonScannerAgent, func(r *http.Request) bool {
		return containsAny(strings.ToLower(r.UserAgent()), scannerAgents)
	}},
	{ReasonUnusualMethod, func(r *http.Request) bool {
		return unusualMethods[r.Method]
	}},
	{ReasonOversizedURL, func(r *http.Request) bool {
		return len(r.URL.String()) > maxURLLength
	}},
	{ReasonForwardedChain, func(r *http.Request) bool {
		return strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxForwardedHops
	}},
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// DetectionMetrics counts what the detector has seen since start-up.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByReason           map[string]int64
}

// Detector flags requests that look like probes and resolves the client
// address behind trusted proxies. It never blocks anything itself.
type Detector struct {
	suspicious atomic.Int64
	invalidIP  atomic.Int64

	mu       sync.RWMutex
	byReason map[string]int64
	trusted  []*net.IPNet
}

// NewDetector returns a detector trusting loopback and the private ranges.
func NewDetector() *Detector {
	d := &Detector{byReason: make(map[string]int64)}
	for _, cidr := range strings.Split(defaultTrustedNets, ",") {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

// Inspect returns the first rule r matches, or "" and false.
func (d *Detector) Inspect(r *http.Request) (string, bool) {
	for _, rl := range rules {
		if rl.match(r) {
			d.suspicious.Add(1)
			d.mu.Lock()
			d.byReason[rl.reason]++
			d.mu.Unlock()
			return rl.reason, true
		}
	}
	return "", false
}

// ExtractClientIP returns the forwarded client address when the direct peer
// is a trusted proxy, else the peer address.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	peer := net.ParseIP(direct)
	if peer == nil || !d.isTrustedProxy(peer) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
		d.invalidIP.Add(1)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		d.invalidIP.Add(1)
	}
	return direct
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy trusts forwarded headers from peers inside cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.trusted = append(d.trusted, network)
	d.mu.Unlock()
	return nil
}

// GetMetrics returns a snapshot of the counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.RLock()
	byReason := make(map[string]int64, len(d.byReason))
	for k, v := range d.byReason {
		byReason[k] = v
	}
	d.mu.RUnlock()

	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
		ByReason:           byReason,
	}
}
