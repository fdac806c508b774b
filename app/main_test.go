package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/bili-feedgen/app/bilibili"
	"github.com/lysyi3m/bili-feedgen/app/feed"
	"github.com/lysyi3m/bili-feedgen/app/output"
)

const uploadsResponse = `{"status": true, "data": {"vlist": [
  {"aid": 170001, "title": "First", "author": "Uploader", "created": 1500000000,
   "pic": "http://i0.hdslb.com/1.jpg", "description": "one", "length": "03:25"}
]}}`

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{"COUNT", "OUTPUT_FILE", "FORCE_WRITE", "FEED_URL", "FILTERS",
		"DISPLAY_NAME", "ALLOW_EMPTY", "MEMBER_ID", "FEEDS_DIR", "LISTEN", "HISTORY_DB",
		"API_ACCESS_KEY", "API_URL", "RATE_LIMIT", "DEBUG"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func newAPI(t *testing.T, status int, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		extra    []string
		expected int
	}{
		{"success", http.StatusOK, uploadsResponse, nil, 0},
		{"api failure", http.StatusForbidden, "", nil, exitFailure},
		{"empty result", http.StatusOK, `{"data": {"vlist": []}}`, nil, exitFailure},
		{"empty result allowed", http.StatusOK, `{"data": {"vlist": []}}`, []string{"--allow-empty"}, 0},
		{"malformed record", http.StatusOK, `{"data": {"vlist": [{"aid": 1}]}}`, nil, exitFailure},
		{"usage error", http.StatusOK, uploadsResponse, []string{"--count", "0"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			apiURL := newAPI(t, tt.status, tt.body)

			args := append([]string{"--api-url", apiURL, "--rate-limit", "0"}, tt.extra...)
			args = append(args, "1315101")

			var stdout bytes.Buffer
			assert.Equal(t, tt.expected, run(args, &stdout))
			if tt.expected == 0 {
				assert.Contains(t, stdout.String(), "<feed xmlns=\"http://www.w3.org/2005/Atom\">")
			} else {
				assert.Empty(t, stdout.String())
			}
		})
	}
}

func TestRun_MissingMemberID(t *testing.T) {
	isolateEnv(t)
	assert.Equal(t, exitUsage, run(nil, &bytes.Buffer{}))
}

func TestRun_Version(t *testing.T) {
	isolateEnv(t)

	var stdout bytes.Buffer
	assert.Equal(t, 0, run([]string{"-V"}, &stdout))
	assert.Contains(t, stdout.String(), "bili-feedgen/")
}

func TestRun_WritesOutputFile(t *testing.T) {
	isolateEnv(t)
	apiURL := newAPI(t, http.StatusOK, uploadsResponse)
	path := filepath.Join(t.TempDir(), "atom.xml")

	var stdout bytes.Buffer
	require.Equal(t, 0, run([]string{"--api-url", apiURL, "--rate-limit", "0", "-o", path, "1315101"}, &stdout))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http://www.bilibili.com/video/av170001/")

	unwritable := filepath.Join(t.TempDir(), "missing", "atom.xml")
	assert.Equal(t, exitFailure, run([]string{"--api-url", apiURL, "--rate-limit", "0", "-o", unwritable, "1315101"}, &stdout))
}

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{fmt.Errorf("failed to fetch uploads: %w", &bilibili.APIError{StatusCode: 500}), "Bilibili API request failed"},
		{fmt.Errorf("failed to normalize uploads: %w", &feed.MalformedRecordError{Field: feed.FieldID}), "Bilibili API returned a malformed record"},
		{&feed.EmptyResultError{MemberID: "1"}, "Bilibili API returned no uploads"},
		{fmt.Errorf("failed to write feed: %w", &output.IOError{Destination: "atom.xml", Err: os.ErrPermission}), "Failed to write feed"},
		{context.Canceled, "Interrupted"},
		{errors.New("boom"), "Feed generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, describeFailure(tt.err))
		})
	}
}
