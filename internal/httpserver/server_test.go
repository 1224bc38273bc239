package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flavorwatch/internal/app"
	"flavorwatch/internal/config"
	"flavorwatch/internal/fetcher"
	"flavorwatch/internal/flavor"
	"flavorwatch/internal/observability"
)

type stubRunner struct {
	mu      sync.Mutex
	outcome *app.Outcome
	err     error
	calls   []app.RunOptions
	ctxErrs []error
}

func (s *stubRunner) Run(ctx context.Context, opts app.RunOptions) (*app.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, opts)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.outcome, s.err
}

func newTestServer(runner app.Runner, notify bool) *httptest.Server {
	s := New(config.ServerConfig{Address: ":0", NotifyOnDemand: notify}, runner, observability.NewNop())
	return httptest.NewServer(s.Handler())
}

func successfulOutcome() *app.Outcome {
	date := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	return &app.Outcome{
		Result:  flavor.Result{Flavors: []string{"Chocolate", "Peachy Kiwi", "Mint"}, Date: &date},
		Matched: true,
	}
}

func TestCheckSuccess(t *testing.T) {
	runner := &stubRunner{outcome: successfulOutcome()}
	ts := newTestServer(runner, false)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var view flavor.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, runner.outcome.Result.Flavors, view.Flavors)
	require.NotNil(t, view.Date)
	assert.Equal(t, "2025-06-05", *view.Date)
	assert.True(t, view.Found)

	require.Len(t, runner.calls, 1)
	assert.False(t, runner.calls[0].Notify)
	assert.Equal(t, "http", runner.calls[0].Trigger)
}

func TestCheckNullDateAndEmptyFlavors(t *testing.T) {
	runner := &stubRunner{outcome: &app.Outcome{Result: flavor.Result{}}}
	ts := newTestServer(runner, false)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["flavors"]))
	assert.JSONEq(t, `null`, string(raw["date"]))
	assert.JSONEq(t, `false`, string(raw["found"]))
}

func TestCheckNotifyOnDemand(t *testing.T) {
	runner := &stubRunner{outcome: successfulOutcome()}
	ts := newTestServer(runner, true)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, runner.calls, 1)
	assert.True(t, runner.calls[0].Notify)
}

func TestCheckRunSurvivesClientDisconnect(t *testing.T) {
	tests := []struct {
		name    string
		notify  bool
		wantErr error
	}{
		{"notifying run is detached", true, nil},
		{"report-only run follows the request", false, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{outcome: successfulOutcome()}
			s := New(config.ServerConfig{Address: ":0", NotifyOnDemand: tt.notify}, runner, observability.NewNop())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

			s.Handler().ServeHTTP(httptest.NewRecorder(), req)

			require.Len(t, runner.ctxErrs, 1)
			assert.Equal(t, tt.wantErr, runner.ctxErrs[0])
		})
	}
}

func TestCheckFailureIsEmpty500(t *testing.T) {
	errs := []error{
		&fetcher.NetworkError{URL: "https://joesice.test/", StatusCode: 503},
		app.ErrEmptyListing,
		errors.New("anything else"),
	}

	for _, runErr := range errs {
		t.Run(runErr.Error(), func(t *testing.T) {
			ts := newTestServer(&stubRunner{err: runErr}, false)
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assertEmptyBody(t, resp)
		})
	}
}

func TestOtherRequestsAre405(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/"},
		{http.MethodPut, "/"},
		{http.MethodDelete, "/"},
		{http.MethodGet, "/other"},
		{http.MethodPost, "/other"},
		{http.MethodGet, "/favicon.ico"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			runner := &stubRunner{outcome: successfulOutcome()}
			ts := newTestServer(runner, false)
			defer ts.Close()

			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(""))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
			assertEmptyBody(t, resp)
			assert.Empty(t, runner.calls, "no run for rejected requests")
		})
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	s := New(config.ServerConfig{Address: ":0"}, &stubRunner{}, observability.NewNop())
	assert.NoError(t, s.Shutdown())
}

func assertEmptyBody(t *testing.T, resp *http.Response) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}
