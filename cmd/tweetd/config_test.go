package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tweets "github.com/anatolykoptev/go-tweets"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tweetd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source: graphql
log:
  level: debug
  format: json
engine:
  unavailable_status: 410
  max_concurrency: 8
server:
  addr: ":8080"
  write_timeout: 90s
browser:
  headless: false
  capture_timeout: 45s
  flags: ["--no-sandbox", "--lang=en-US"]
graphql:
  proxy: "socks5://127.0.0.1:1080"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, sourceGraphQL, cfg.Source)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 410, cfg.Engine.UnavailableStatus)
	require.Equal(t, 8, cfg.Engine.MaxConcurrency)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
	require.False(t, cfg.Browser.IsHeadless())
	require.Equal(t, 45*time.Second, cfg.Browser.CaptureTimeout)
	require.Equal(t, []string{"--no-sandbox", "--lang=en-US"}, cfg.Browser.Flags)
	require.Equal(t, "socks5://127.0.0.1:1080", cfg.GraphQL.Proxy)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, sourceBrowser, cfg.Source)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"syntax": "source: [",
		"source": "source: carrier-pigeon",
		"level":  "log:\n  level: loud",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])

	_, err = newLogger(LogConfig{Format: "xml"}, &buf)
	require.Error(t, err)
}

func TestRunGet(t *testing.T) {
	body := []byte(`{"data":{"threaded_conversation_with_injections_v2":{"instructions":[{"type":"TimelineAddEntries","entries":[
		{"entryId":"tweet-42","content":{"itemContent":{"tweet_results":{"result":{
			"__typename":"Tweet","rest_id":"42","edit_control":{"edit_tweet_ids":["42"]},"legacy":{"full_text":"hello"}
		}}}}}
	]}]}}}`)
	src := tweets.SourceFunc(func(_ context.Context, id string) ([]byte, error) {
		if id != "42" {
			return nil, tweets.ErrNotCaptured
		}
		return body, nil
	})
	b := tweets.NewBuilder(src, tweets.Config{})

	decode := func(t *testing.T, out []byte) (data, errs []map[string]any) {
		t.Helper()
		var res struct {
			Data   []map[string]any `json:"data"`
			Errors []map[string]any `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(out, &res))
		return res.Data, res.Errors
	}

	t.Run("strict", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runGet(context.Background(), &out, b, []string{"42", "7"}, nil, false))
		data, errs := decode(t, out.Bytes())
		require.Len(t, data, 1)
		require.Equal(t, "hello", data[0]["text"])
		require.Len(t, errs, 1)
		require.Equal(t, "resource-not-found", errs[0]["reason"])
	})

	t.Run("partial", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runGet(context.Background(), &out, b, []string{"42", "7"}, tweets.NewFieldSet(tweets.FieldLang), true))
		data, errs := decode(t, out.Bytes())
		require.Len(t, data, 1)
		require.Len(t, errs, 2, "lang failure for 42 and not-found for 7")
	})

	var out bytes.Buffer
	err := runGet(context.Background(), &out, b, []string{"7"}, nil, false)
	require.ErrorIs(t, err, errNothingBuilt)
}
