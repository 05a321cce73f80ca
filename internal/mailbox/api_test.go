package mailbox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/retry"
)

const inboxPath = "/api/v2/domains/public/mailinator.com/inboxes/testab12cd34"

func newTestAPIClient(t *testing.T, srv *httptest.Server, attempts int) *APIClient {
	t.Helper()
	c, err := NewAPIClient(config.MailAPIConfig{
		BaseURL:           srv.URL + "/api/v2",
		Domain:            "public/mailinator.com",
		Token:             "secret-token",
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             10,
	}, retry.Policy{MaxAttempts: attempts, Sleep: noSleep}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(c.client.CloseIdleConnections)
	return c
}

func TestAPIClientRetrieveCode(t *testing.T) {
	var listings atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(inboxPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("Authorization"))
		if listings.Add(1) < 3 {
			fmt.Fprint(w, `{"domain":"public","to":"testab12cd34","msgs":[]}`)
			return
		}
		fmt.Fprint(w, `{"msgs":[{"id":"m-welcome","subject":"Welcome"},{"id":"m-otp","subject":"Verify"}]}`)
	})
	mux.HandleFunc("/api/v2/domains/public/mailinator.com/messages/m-welcome", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"m-welcome","text":"Thanks for joining"}`)
	})
	mux.HandleFunc("/api/v2/domains/public/mailinator.com/messages/m-otp", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"m-otp","text":"Your code is 482913, expires in 10 minutes"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	code, err := newTestAPIClient(t, srv, 5).RetrieveCode(context.Background(), testMailbox)
	require.NoError(t, err)
	assert.Equal(t, schemas.VerificationCode("482913"), code)
	assert.Equal(t, int32(3), listings.Load())
}

func TestAPIClientMessageBodies(t *testing.T) {
	tests := []struct {
		name    string
		message string
		raw     string
		want    schemas.VerificationCode
	}{
		{
			name:    "html part",
			message: `{"id":"m1","parts":[{"headers":{"Content-Type":"text/html; charset=UTF-8"},"body":"<p>Code: <b>650021</b></p>"}]}`,
			want:    "650021",
		},
		{
			name:    "plain part",
			message: `{"id":"m1","parts":[{"headers":{"content-type":"text/plain"},"body":"Code 118822"}]}`,
			want:    "118822",
		},
		{
			name:    "raw fallback",
			message: `{"id":"m1"}`,
			raw:     plainMessage,
			want:    "482913",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc(inboxPath, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"messages":[{"id":"m1"}]}`)
			})
			mux.HandleFunc("/api/v2/domains/public/mailinator.com/messages/m1", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.message)
			})
			mux.HandleFunc("/api/v2/domains/public/mailinator.com/messages/m1/raw", func(w http.ResponseWriter, r *http.Request) {
				if tt.raw == "" {
					http.NotFound(w, r)
					return
				}
				fmt.Fprint(w, tt.raw)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			code, err := newTestAPIClient(t, srv, 1).RetrieveCode(context.Background(), testMailbox)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestAPIClientTimeout(t *testing.T) {
	var listings atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listings.Add(1)
		fmt.Fprint(w, `{"msgs":[]}`)
	}))
	defer srv.Close()

	_, err := newTestAPIClient(t, srv, 4).RetrieveCode(context.Background(), testMailbox)
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrOtpNotReceived)
	assert.ErrorIs(t, err, schemas.ErrPollTimeout)
	assert.Equal(t, int32(4), listings.Load())
}

func TestAPIClientServerErrorsAreRetried(t *testing.T) {
	var listings atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if listings.Add(1) == 1 {
			http.Error(w, "upstream busy", http.StatusBadGateway)
			return
		}
		if r.URL.Path == inboxPath {
			fmt.Fprint(w, `{"msgs":[{"id":"m1"}]}`)
			return
		}
		fmt.Fprint(w, `{"text":"code 900100"}`)
	}))
	defer srv.Close()

	code, err := newTestAPIClient(t, srv, 3).RetrieveCode(context.Background(), testMailbox)
	require.NoError(t, err)
	assert.Equal(t, schemas.VerificationCode("900100"), code)
}

func TestAPIClientUnauthorizedStops(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestAPIClient(t, srv, 10).RetrieveCode(context.Background(), testMailbox)
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrOtpNotReceived)
	assert.NotErrorIs(t, err, schemas.ErrPollTimeout)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), requests.Load())
}

func TestNewAPIClientRejectsEmptyBaseURL(t *testing.T) {
	_, err := NewAPIClient(config.MailAPIConfig{}, retry.Policy{MaxAttempts: 1}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
