// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/health"
	"github.com/ManuGH/ytaudio/internal/jobs"
	"github.com/ManuGH/ytaudio/internal/ratelimit"
	"github.com/ManuGH/ytaudio/internal/tasks"
)

// scriptedJobs validates like the orchestrator and then runs fn inline.
type scriptedJobs struct {
	fn func(ctx context.Context, sink jobs.ResultSink)
}

func (s *scriptedJobs) Submit(ctx context.Context, _, rawURL string, _ jobs.SubmitOptions, sink jobs.ResultSink) error {
	if _, err := jobs.ValidateURL(rawURL, jobs.DefaultHosts, jobs.DefaultMaxURLLength); err != nil {
		return err
	}
	if s.fn != nil {
		s.fn(ctx, sink)
	}
	return nil
}

type testEnv struct {
	srv     *httptest.Server
	store   *tasks.MemoryStore
	results string
	scratch string
}

func newTestEnv(t *testing.T, fn func(ctx context.Context, sink jobs.ResultSink), deps Deps) *testEnv {
	t.Helper()
	env := &testEnv{store: tasks.NewMemoryStore(time.Hour), results: t.TempDir(), scratch: t.TempDir()}
	deps.Tasks = &tasks.Service{Jobs: &scriptedJobs{fn: fn}, Store: env.store, ResultsDir: env.results}
	if deps.Health == nil {
		deps.Health = health.NewManager("test")
	}
	env.srv = httptest.NewServer(New(Config{ServeMetrics: true}, deps).Routes())
	t.Cleanup(env.srv.Close)
	return env
}

func postDownload(t *testing.T, base, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(base+"/api/download", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestDownloadLifecycle(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t, func(ctx context.Context, sink jobs.ResultSink) {
		path := filepath.Join(env.scratch, "yt_1.opus")
		require.NoError(t, os.WriteFile(path, []byte("OggS-audio"), 0o600))
		tier, _ := format.Lookup("OPUS_64")
		require.NoError(t, sink.Delivered(ctx, jobs.Result{Path: path, Title: "My / Song", Tier: tier, SizeBytes: 10}))
	}, Deps{})

	resp, body := postDownload(t, env.srv.URL, `{"url":"`+videoURL+`"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id, _ := body["taskId"].(string)
	require.NotEmpty(t, id)

	resp, status := getJSON(t, env.srv.URL+"/api/status/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", status["status"])
	assert.Equal(t, "My / Song", status["title"])
	assert.Equal(t, "OPUS_64", status["format"])
	assert.Equal(t, "/api/files/"+id, status["downloadUrl"])

	fileResp, err := http.Get(env.srv.URL + "/api/files/" + id)
	require.NoError(t, err)
	defer fileResp.Body.Close()
	assert.Equal(t, http.StatusOK, fileResp.StatusCode)
	assert.Equal(t, "audio/ogg", fileResp.Header.Get("Content-Type"))
	assert.Contains(t, fileResp.Header.Get("Content-Disposition"), "My _ Song.opus")
	data, err := io.ReadAll(fileResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OggS-audio", string(data))
}

func TestDownloadRejectsBadURL(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	resp, body := postDownload(t, env.srv.URL, `{"url":"https://example.com/watch?v=dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["errorKind"])

	resp, _ = postDownload(t, env.srv.URL, `{"url":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = postDownload(t, env.srv.URL, `{"url":"`+videoURL+`","format":"FLAC"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["errorKind"])
}

func TestStatusErrorAndPending(t *testing.T) {
	env := newTestEnv(t, func(ctx context.Context, sink jobs.ResultSink) {
		sink.Failed(ctx, &jobs.Error{Kind: jobs.KindSizeLimitExceeded, Message: "Too long."})
	}, Deps{})

	_, body := postDownload(t, env.srv.URL, `{"url":"`+videoURL+`"}`)
	id := body["taskId"].(string)

	_, status := getJSON(t, env.srv.URL+"/api/status/"+id)
	assert.Equal(t, "error", status["status"])
	assert.Equal(t, "size_limit_exceeded", status["errorKind"])
	assert.Equal(t, "Too long.", status["error"])
	assert.Nil(t, status["downloadUrl"])

	resp, _ := getJSON(t, env.srv.URL+"/api/files/"+id)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = getJSON(t, env.srv.URL+"/api/status/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmissionRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, Deps{Limiter: ratelimit.New(ratelimit.PerMinute(1))})

	resp, _ := postDownload(t, env.srv.URL, `{"url":"`+videoURL+`"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, body := postDownload(t, env.srv.URL, `{"url":"`+videoURL+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["errorKind"])
}

func TestWebhookAndProbes(t *testing.T) {
	hit := make(chan struct{}, 1)
	hook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit <- struct{}{}
		w.WriteHeader(http.StatusOK)
	})
	env := newTestEnv(t, nil, Deps{Webhook: hook})

	resp, err := http.Post(env.srv.URL+"/webhook", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	<-hit

	resp, _ = getJSON(t, env.srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = getJSON(t, env.srv.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	data, _ := io.ReadAll(metricsResp.Body)
	assert.Contains(t, string(data), "ytaudio_http_request_duration_seconds")
}

func TestWebhookAbsentWithoutBot(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})
	resp, err := http.Post(env.srv.URL+"/webhook", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "a_b.opus", downloadName("a/b", ".opus"))
	assert.Equal(t, "audio.m4a", downloadName("  ", ".m4a"))
	assert.Equal(t, 120, len([]rune(strings.TrimSuffix(downloadName(strings.Repeat("é", 200), ".opus"), ".opus"))))
}
