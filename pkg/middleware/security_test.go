package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diagnosis/sai-platform/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	SecurityHeaders(false)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	SecurityHeaders(true)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestMatchSuspicious(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<script>alert(1)</script>`, "script_tag"},
		{`javascript:alert(1)`, "javascript_uri"},
		{`<img src=x onerror=alert(1)>`, "event_handler"},
		{`1 UNION SELECT password FROM users`, "union_select"},
		{`x; DROP TABLE users`, "drop_table"},
		{`' OR '1'='1`, "or_tautology"},
		{`admin'--`, "sql_comment"},
		{`../../etc/passwd`, "path_traversal"},
		{`%2E%2E/secret`, "path_traversal"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Contains(t, MatchSuspicious(tt.in), tt.want)
		})
	}

	assert.Empty(t, MatchSuspicious(`{"firstName":"Jane","message":"Looking forward to a demo."}`))
}

func TestSuspiciousActivity_NeverBlocksAndRestoresBody(t *testing.T) {
	m := metrics.New()
	body := `{"message":"<script>alert(1)</script>"}`

	var got string
	h := SuspiciousActivity(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, got)
	assert.Contains(t, scrape(t, m), `sai_suspicious_requests_total{pattern="script_tag"} 1`)
}

func TestSuspiciousActivity_LargeBodyPassesThroughWhole(t *testing.T) {
	body := strings.Repeat("a", maxInspectBytes+1024)

	var n int
	h := SuspiciousActivity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		n = len(b)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	assert.Equal(t, len(body), n)
}

func TestSuspiciousActivity_QueryAndUserAgent(t *testing.T) {
	m := metrics.New()
	h := SuspiciousActivity(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/x?q=1%20UNION%20SELECT%201", nil)
	req.Header.Set("User-Agent", "sqlmap ' OR '1'='1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := scrape(t, m)
	assert.Contains(t, out, `sai_suspicious_requests_total{pattern="union_select"} 1`)
	assert.Contains(t, out, `sai_suspicious_requests_total{pattern="or_tautology"} 1`)
}
