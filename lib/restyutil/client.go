package restyutil

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"recipes-backend/internal/components/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const DEFAULT_USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Options configures the http client of a site adapter.
type Options struct {
	BaseUrl        string  `json:"base_url"`
	UserAgent      string  `json:"user_agent"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	RequestsPerSec float64 `json:"requests_per_second"`
	Burst          int     `json:"burst"`
	// CloudflareBypass mimics a browser TLS handshake for sites behind cloudflare.
	CloudflareBypass bool `json:"cloudflare_bypass"`
	// DumpDir receives every request and response when debug logging is on.
	DumpDir string `json:"dump_dir"`
}

// NewClient creates a resty client bound to a single site: cookies are kept,
// redirects may not leave the site's host and requests are rate limited.
func NewClient(opts Options, tel telemetry.API) (*resty.Client, error) {
	if opts.BaseUrl == "" {
		return nil, fmt.Errorf("base url is required")
	}
	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DEFAULT_USER_AGENT
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))

	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	client.SetTimeout(time.Duration(timeout) * time.Second)

	if opts.RequestsPerSec > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	var output InstrumentOutput
	if opts.DumpDir != "" {
		fsOutput, err := NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("create dump dir: %w", err)
		}
		output = fsOutput
	}
	InstrumentClient(client, otel.Tracer("lib/restyutil"), output)
	if tel != nil {
		telemetry.InstrumentResty(client, tel)
	}

	return client, nil
}
