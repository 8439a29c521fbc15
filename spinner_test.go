/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:         "127.0.0.1",
		port:         8080,
		frameRate:    10,
		spinDuration: time.Second,
		minGroupSize: 2,
		metrics:      true,
		logger:       log.New(io.Discard),
	}
}

type testServer struct {
	srv     *httptest.Server
	clock   *quartz.Mock
	metrics *Metrics
	manager *SessionManager
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := testConfig()
	clock := quartz.NewMock(t)
	metrics := newMetrics()
	errs := make(chan error, 64)
	go drainErrors(ctx, cfg, errs)

	mux, sm := newRouter(ctx, cfg, clock, metrics, errs)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, clock: clock, metrics: metrics, manager: sm}
}

func (ts *testServer) dial(t *testing.T, session, owner string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + spinnerPath + "/" + session + "/ws"
	header := http.Header{}
	header.Set("Cookie", ownerCookieName+"="+owner)

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", typ)

		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

// readState reads state messages until pred holds.
func readState(t *testing.T, conn *websocket.Conn, pred func(StateMessage) bool) StateMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &head))
		if head.Type != "state" {
			continue
		}

		var st StateMessage
		require.NoError(t, json.Unmarshal(data, &st))
		if pred(st) {
			return st
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}

func TestSpinnerSessionFlow(t *testing.T) {
	ts := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := ts.dial(t, "flow", "host")

	info := readUntil(t, host, "session_info")
	assert.Equal(t, true, info["is_host"])
	readState(t, host, func(st StateMessage) bool { return true })

	send(t, host, ClientMessage{Type: "add_names", Text: "Ada, Bob;Cy\nDee\nAda"})
	st := readState(t, host, func(st StateMessage) bool { return len(st.Names) == 4 })
	assert.Equal(t, []string{"Ada", "Bob", "Cy", "Dee"}, st.Names)
	require.Len(t, st.Suggestions, 1)
	assert.Equal(t, "2 groups of 2", st.Suggestions[0].Label)
	assert.Equal(t, -1, st.Chosen)

	send(t, host, ClientMessage{Type: "choose_split", Index: 0})
	readState(t, host, func(st StateMessage) bool { return st.Chosen == 0 })

	send(t, host, ClientMessage{Type: "create_groups", Index: 0})
	st = readState(t, host, func(st StateMessage) bool { return len(st.Groups) == 2 })
	assert.Equal(t, "Group 1 (0/2)", st.Groups[0].Title)
	assert.Equal(t, 2, st.Groups[1].Capacity)

	send(t, host, ClientMessage{Type: "spin", Group: 1})
	start := readUntil(t, host, "spin_start")
	assert.EqualValues(t, 1, start["group"])
	assert.EqualValues(t, 1000, start["duration_ms"])

	// a second spin while the first is in flight is dropped
	send(t, host, ClientMessage{Type: "spin", Group: 0})
	notice := readUntil(t, host, "notice")
	assert.Equal(t, "spinning", notice["reason"])

	for i := 0; i < 10; i++ {
		ts.clock.Advance(100 * time.Millisecond).MustWait(ctx)
	}

	result := readUntil(t, host, "spin_result")
	assert.EqualValues(t, 1, result["group"])
	picked, _ := result["name"].(string)
	assert.Contains(t, []string{"Ada", "Bob", "Cy", "Dee"}, picked)

	st = readState(t, host, func(st StateMessage) bool { return !st.Spinning && len(st.Names) == 3 })
	assert.Equal(t, []string{picked}, st.Groups[1].Members)
	assert.Empty(t, st.Groups[0].Members)
	assert.NotContains(t, st.Names, picked)
	require.Len(t, st.History, 1)
	assert.Equal(t, picked, st.History[0].Name)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.spinsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.spinsRejected.WithLabelValues("spinning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.assignments))

	// removing the member puts the name back in the pool
	send(t, host, ClientMessage{Type: "remove_member", Group: 1, Member: 0})
	st = readState(t, host, func(st StateMessage) bool { return len(st.Names) == 4 })
	assert.Equal(t, picked, st.Names[3])
	assert.Empty(t, st.Groups[1].Members)

	send(t, host, ClientMessage{Type: "rename", Group: 0, Title: "  Red team "})
	st = readState(t, host, func(st StateMessage) bool { return st.Groups[0].Title == "Red team" })
	assert.Equal(t, "Group 2 (0/2)", st.Groups[1].Title)
}

func TestSpinnerRejectsInvalidSpins(t *testing.T) {
	ts := startTestServer(t)

	host := ts.dial(t, "invalid", "host")
	readUntil(t, host, "session_info")

	send(t, host, ClientMessage{Type: "spin", Group: 0})
	notice := readUntil(t, host, "notice")
	assert.Equal(t, "empty_pool", notice["reason"])

	send(t, host, ClientMessage{Type: "add_names", Text: "a,b"})
	readState(t, host, func(st StateMessage) bool { return len(st.Names) == 2 })

	send(t, host, ClientMessage{Type: "spin", Group: 3})
	notice = readUntil(t, host, "notice")
	assert.Equal(t, "invalid", notice["reason"])

	send(t, host, ClientMessage{Type: "create_groups", Index: 5})
	notice = readUntil(t, host, "notice")
	assert.Equal(t, "no_split", notice["reason"])

	assert.Equal(t, 0.0, testutil.ToFloat64(ts.metrics.spinsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.spinsRejected.WithLabelValues("empty_pool")))
}

func TestSpinnerViewerIsReadOnly(t *testing.T) {
	ts := startTestServer(t)

	host := ts.dial(t, "shared", "host")
	readUntil(t, host, "session_info")

	viewer := ts.dial(t, "shared", "someone-else")
	info := readUntil(t, viewer, "session_info")
	assert.Equal(t, false, info["is_host"])

	send(t, viewer, ClientMessage{Type: "add_names", Text: "intruder"})
	notice := readUntil(t, viewer, "notice")
	assert.Equal(t, "not_host", notice["reason"])

	send(t, host, ClientMessage{Type: "add_names", Text: "guest"})
	st := readState(t, viewer, func(st StateMessage) bool { return len(st.Names) > 0 })
	assert.Equal(t, []string{"guest"}, st.Names)
}

func TestSpinnerClearResetsGroups(t *testing.T) {
	ts := startTestServer(t)

	host := ts.dial(t, "clear", "host")
	readUntil(t, host, "session_info")

	send(t, host, ClientMessage{Type: "add_names", Text: "a,b,c,d,e,f"})
	readState(t, host, func(st StateMessage) bool { return len(st.Names) == 6 })

	send(t, host, ClientMessage{Type: "create_groups", Index: 1})
	readState(t, host, func(st StateMessage) bool { return len(st.Groups) == 3 })

	send(t, host, ClientMessage{Type: "remove_name", Index: 0})
	st := readState(t, host, func(st StateMessage) bool { return len(st.Names) == 5 })
	assert.Equal(t, "b", st.Names[0])

	send(t, host, ClientMessage{Type: "clear"})
	st = readState(t, host, func(st StateMessage) bool { return len(st.Names) == 0 })
	assert.Empty(t, st.Groups)
	assert.Empty(t, st.Suggestions)
}

func TestSessionReaper(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := testConfig()
	cfg.sessionTimeout = time.Minute
	clock := quartz.NewMock(t)
	metrics := newMetrics()

	sm := newSessionManager(ctx, cfg, clock, metrics)
	hub := sm.getHub("idle")
	require.Same(t, hub, sm.getHub("idle"))
	assert.Equal(t, 1, sm.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessionsActive))

	clock.Advance(30 * time.Second).MustWait(ctx)
	assert.Equal(t, 1, sm.Len())

	clock.Advance(30 * time.Second).MustWait(ctx)
	clock.Advance(30 * time.Second).MustWait(ctx)
	assert.Equal(t, 0, sm.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessionsTotal))

	require.Eventually(t, func() bool {
		select {
		case <-hub.done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHTTPRoutes(t *testing.T) {
	ts := startTestServer(t)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(ts.srv.URL + spinnerPath)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, spinnerPath+"/"), loc)
	assert.Len(t, strings.TrimPrefix(loc, spinnerPath+"/"), 8)

	resp, err = client.Get(ts.srv.URL + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, spinnerPath, resp.Header.Get("Location"))

	resp, err = client.Get(ts.srv.URL + loc)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/assets/spinner/app.js")
	assert.NotEmpty(t, resp.Cookies())

	resp, err = client.Get(ts.srv.URL + loc + "/qr")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	for path, contentType := range map[string]string{
		"/assets/spinner/app.js":  "text/javascript; charset=utf-8",
		"/assets/spinner/app.css": "text/css; charset=utf-8",
		"/favicons/favicon.svg":   "image/svg+xml",
		"/healthz":                "text/plain; charset=utf-8",
		"/version":                "text/plain; charset=utf-8",
		"/robots.txt":             "text/plain; charset=utf-8",
	} {
		resp, err := client.Get(ts.srv.URL + path)
		require.NoError(t, err, path)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, contentType, resp.Header.Get("Content-Type"), path)
	}

	resp, err = client.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "spinbox_sessions_active")

	resp, err = client.Get(ts.srv.URL + "/assets/spinner/missing.js")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.validate())

	bad := []func(*Config){
		func(c *Config) { c.port = 0 },
		func(c *Config) { c.tlsCert = "cert.pem" },
		func(c *Config) { c.frameRate = 0 },
		func(c *Config) { c.spinDuration = 0 },
		func(c *Config) { c.minGroupSize = 0 },
		func(c *Config) { c.minGroupSize, c.maxGroupSize = 4, 3 },
	}
	for i, mutate := range bad {
		c := testConfig()
		mutate(c)
		assert.Error(t, c.validate(), "case %d", i)
	}

	c := testConfig()
	c.tlsCert, c.tlsKey = "cert.pem", "key.pem"
	require.NoError(t, c.validate())
	assert.Equal(t, "https", c.scheme())
}

func TestEnvOverridesFlags(t *testing.T) {
	t.Setenv("SPINBOX_PORT", "9090")
	t.Setenv("SPINBOX_MIN_GROUP_SIZE", "3")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--bind", "127.0.0.1"}))
	bindEnv(cmd.Flags())

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 3, cfg.minGroupSize)
	assert.Equal(t, "127.0.0.1", cfg.bind)
}

func TestRandomIDRejectsBiasedBytes(t *testing.T) {
	// 255 and 248 fall in the uneven tail and are skipped; 62 and 247 wrap.
	src := bytes.NewReader([]byte{255, 0, 248, 61, 62, 247, 1, 2})

	id, err := randomID(src, 4)
	require.NoError(t, err)
	assert.Equal(t, "A9A9", id)

	_, err = randomID(bytes.NewReader([]byte{250, 251, 252, 253}), 4)
	assert.Error(t, err)

	assert.Equal(t, 248, sessionIDCutoff)
}

func TestNewSessionIDAlphabet(t *testing.T) {
	ts := startTestServer(t)

	for i := 0; i < 100; i++ {
		id := ts.manager.newSessionID()
		require.Len(t, id, sessionIDLength)
		for _, r := range id {
			require.True(t, strings.ContainsRune(sessionIDLetters, r), "unexpected %q in %q", r, id)
		}
	}
}
