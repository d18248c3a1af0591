package restyutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"recipes-backend/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("user-agent")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	tel := &telemetry.Recorder{}
	client, err := NewClient(Options{
		BaseUrl:        server.URL,
		RequestsPerSec: 100,
		Burst:          2,
	}, tel)
	if err != nil {
		t.Fatal(err)
	}

	res, err := client.R().SetContext(context.Background()).Get("/receptek")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, http.StatusOK, res.StatusCode())
	require.Equal(t, DEFAULT_USER_AGENT, userAgent)

	res, err = client.R().SetContext(context.Background()).Get("/missing")
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.IsError())
	require.NotEmpty(t, tel.Find(telemetry.REPORT_WARNING, "resty.response"))
}

func TestNewClientRequiresBaseUrl(t *testing.T) {
	_, err := NewClient(Options{}, nil)
	require.Error(t, err)
}

func TestFormatHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Add("b", "2")
	headers.Add("a", "1")
	headers.Add("a", "3")
	require.Equal(t, "A: 1\nA: 3\nB: 2", formatHeaders(headers))
}
