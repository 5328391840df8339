package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":9950"`

	// BaseURL is the base URL of the application (e.g., "https://depot.example.com").
	// Used for generating absolute URLs in webhook payloads.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:9950"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// MaxUploadBytes caps the accepted size of a single uploaded read file.
	MaxUploadBytes int64 `env:"HTTP_MAX_UPLOAD_BYTES" envDefault:"21474836480"` // 20 GiB
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.MaxUploadBytes < 1 {
		h.MaxUploadBytes = 1 << 30
	}
}
