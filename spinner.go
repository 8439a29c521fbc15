// Spinbox Name Spinner
//
// The host enters names, picks how the pool should be split into groups,
// then spins the wheel once per seat to draw a name into a chosen group.
//
// Features:
// - WebSockets per session ID: /spin/:session and /spin/:session/ws
// - First cookie to connect becomes the host; later connections mirror
//   the host's screen read-only (presenter view)
// - Names are entered as free text split on newlines, commas and semicolons
// - Split suggestions are recomputed whenever the pool size changes
// - The server owns the spin: it draws the target angle, drives the frames
//   and resolves the winner; browsers replay the same animation locally
// - Only one spin may be in flight per session; extra requests are dropped
// - Names can be removed from groups and return to the pool
// - Groups can be renamed
// - Sessions auto-reaped after a configurable idle timeout
// - Random 8-char session IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/spinbox/roster"
	"github.com/Seednode/spinbox/wheel"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/skip2/go-qrcode"
)

const spinnerPath = "/spin"

// Messages coming from clients
type ClientMessage struct {
	Type   string `json:"type"`             // "add_names", "remove_name", "clear", "choose_split", "create_groups", "spin", "remove_member", "rename"
	Text   string `json:"text,omitempty"`   // add_names
	Index  int    `json:"index,omitempty"`  // remove_name / choose_split / create_groups
	Group  int    `json:"group,omitempty"`  // spin / remove_member / rename
	Member int    `json:"member,omitempty"` // remove_member
	Title  string `json:"title,omitempty"`  // rename
}

// SessionInfoMessage is sent immediately on connect so the client knows
// whether it may change the session.
type SessionInfoMessage struct {
	Type      string `json:"type"` // "session_info"
	SessionID string `json:"session_id"`
	IsHost    bool   `json:"is_host"`
}

// GroupView is a group as the client renders it.
type GroupView struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Members  []string `json:"members"`
	Capacity int      `json:"capacity"`
	Full     bool     `json:"full"`
}

type HistoryEntry struct {
	Group int    `json:"group"`
	Title string `json:"title"`
	Name  string `json:"name"`
}

// StateMessage carries everything needed to redraw the page.
type StateMessage struct {
	Type        string          `json:"type"` // "state"
	Names       []string        `json:"names"`
	Suggestions []roster.Option `json:"suggestions"`
	Chosen      int             `json:"chosen"` // index into suggestions, -1 if none
	Groups      []GroupView     `json:"groups"`
	History     []HistoryEntry  `json:"history"`
	Angle       float64         `json:"angle"`
	Spinning    bool            `json:"spinning"`
}

// SpinStartMessage lets clients replay the server's animation.
type SpinStartMessage struct {
	Type       string   `json:"type"` // "spin_start"
	Group      int      `json:"group"`
	From       float64  `json:"from"`
	To         float64  `json:"to"`
	DurationMS int64    `json:"duration_ms"`
	Names      []string `json:"names"`
}

// SpinResultMessage announces the name a spin landed on.
type SpinResultMessage struct {
	Type  string  `json:"type"` // "spin_result"
	Group int     `json:"group"`
	Name  string  `json:"name"`
	Index int     `json:"index"`
	Angle float64 `json:"angle"`
}

// NoticeMessage is for messages shown to a single client ("not_host", "spinning", etc.)
type NoticeMessage struct {
	Type    string `json:"type"` // "notice"
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type Client struct {
	conn    *websocket.Conn
	send    chan any
	ownerID string
}

type clientRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	requests chan clientRequest
	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
	hostID     string // cookie of the host

	board       *roster.Board
	suggestOpts []roster.SuggestOption
	chosen      int
	chosenFor   int // pool size the chosen suggestion was made for
	wheel       *wheel.Wheel
	spinning    bool

	clock   quartz.Clock
	logger  *log.Logger
	metrics *Metrics
}

func newHub(cfg *Config, sessionID string, clock quartz.Clock, metrics *Metrics) *Hub {
	now := clock.Now()
	logger := cfg.logger.With("session", sessionID)

	return &Hub{
		id:          sessionID,
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unreg:       make(chan *Client),
		requests:    make(chan clientRequest),
		done:        make(chan struct{}),
		createdAt:   now,
		lastActive:  now,
		board:       &roster.Board{},
		suggestOpts: cfg.suggestOptions(),
		chosen:      -1,
		wheel: wheel.New(
			wheel.WithClock(clock),
			wheel.WithDuration(cfg.spinDuration),
			wheel.WithFrameRate(cfg.frameRate),
			wheel.WithLogger(logger),
		),
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = h.clock.Now()

			// First connection becomes host
			if h.hostID == "" {
				h.hostID = c.ownerID
				h.logger.Info("SESSIONS: Host connected", "owner", c.ownerID)
			}

			h.clients[c] = true

			h.sendLocked(c, SessionInfoMessage{
				Type:      "session_info",
				SessionID: h.id,
				IsHost:    c.ownerID == h.hostID,
			})
			h.sendLocked(c, h.stateLocked())

			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = h.clock.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case req := <-h.requests:
			h.handleRequest(req)

		case <-h.done:
			return
		}
	}
}

// sendLocked queues msg for c, dropping the client if its buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

func (h *Hub) noticeLocked(c *Client, reason, text string) {
	h.sendLocked(c, NoticeMessage{
		Type:    "notice",
		Reason:  reason,
		Message: text,
	})
}

// suggestionsLocked returns the split options for the current pool and
// forgets the chosen option once the pool size has changed.
func (h *Hub) suggestionsLocked() []roster.Option {
	if h.chosenFor != h.board.Pool.Len() {
		h.chosen = -1
	}
	return h.board.Suggestions(h.suggestOpts...)
}

func (h *Hub) stateLocked() StateMessage {
	suggestions := h.suggestionsLocked()
	if suggestions == nil {
		suggestions = []roster.Option{}
	}

	groups := make([]GroupView, 0, len(h.board.Groups))
	for i, g := range h.board.Groups {
		groups = append(groups, GroupView{
			ID:       g.ID,
			Title:    h.board.DisplayTitle(i),
			Members:  append([]string{}, g.Members...),
			Capacity: g.Capacity,
			Full:     g.Full(),
		})
	}

	history := make([]HistoryEntry, 0, len(h.board.History))
	for _, a := range h.board.History {
		history = append(history, HistoryEntry{
			Group: a.Group,
			Title: h.board.DisplayTitle(a.Group),
			Name:  a.Name,
		})
	}

	return StateMessage{
		Type:        "state",
		Names:       h.board.Pool.Names(),
		Suggestions: suggestions,
		Chosen:      h.chosen,
		Groups:      groups,
		History:     history,
		Angle:       h.wheel.Angle(),
		Spinning:    h.spinning,
	}
}

func (h *Hub) broadcastStateLocked() {
	h.broadcastLocked(h.stateLocked())
}

// handleRequest applies one host command to the board.
func (h *Hub) handleRequest(req clientRequest) {
	c := req.client
	msg := req.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = h.clock.Now()

	// Only the host may change the session
	if c.ownerID != h.hostID {
		h.noticeLocked(c, "not_host", "Only the host can change this session.")
		return
	}

	if h.spinning && msg.Type != "rename" {
		if msg.Type == "spin" {
			h.metrics.spinRejected("spinning")
			h.logger.Debug("SESSIONS: Dropped spin request while spinning")
		}
		h.noticeLocked(c, "spinning", "Wait for the wheel to stop.")
		return
	}

	switch msg.Type {
	case "add_names":
		added := h.board.AddNames(msg.Text)
		if added == 0 {
			return
		}
		h.metrics.added(added)
		h.logger.Debug("SESSIONS: Added names", "count", added, "pool", h.board.Pool.Len())

	case "remove_name":
		if !h.board.RemoveName(msg.Index) {
			return
		}

	case "clear":
		h.board.Clear()
		h.chosen = -1
		h.logger.Debug("SESSIONS: Cleared board")

	case "choose_split":
		suggestions := h.suggestionsLocked()
		if msg.Index < 0 || msg.Index >= len(suggestions) {
			return
		}
		h.chosen = msg.Index
		h.chosenFor = h.board.Pool.Len()

	case "create_groups":
		suggestions := h.suggestionsLocked()
		if msg.Index < 0 || msg.Index >= len(suggestions) {
			h.noticeLocked(c, "no_split", "Choose a group split first.")
			return
		}
		opt := suggestions[msg.Index]
		h.board.CreateGroups(opt)
		h.chosen = -1
		h.metrics.groups(opt.GroupCount)
		h.logger.Info("SESSIONS: Created groups", "split", opt.Label)

	case "spin":
		h.startSpinLocked(c, msg.Group)
		return

	case "remove_member":
		if !h.board.RemoveMember(msg.Group, msg.Member) {
			return
		}

	case "rename":
		if !h.board.Rename(msg.Group, strings.TrimSpace(msg.Title)) {
			return
		}

	default:
		// ignore unknown types
		return
	}

	h.broadcastStateLocked()
}

func (h *Hub) startSpinLocked(c *Client, group int) {
	if err := h.board.CanSpin(group); err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, roster.ErrEmptyPool):
			reason = "empty_pool"
		case errors.Is(err, roster.ErrGroupFull):
			reason = "group_full"
		}
		h.metrics.spinRejected(reason)
		h.noticeLocked(c, reason, err.Error())
		return
	}

	names := h.board.Pool.Names()
	anim, err := h.wheel.Spin(names, nil, func(res wheel.Result) {
		h.finishSpin(group, res)
	})
	if err != nil {
		h.metrics.spinRejected("spinning")
		h.noticeLocked(c, "spinning", "Wait for the wheel to stop.")
		return
	}

	h.spinning = true
	h.metrics.spinStarted()
	h.logger.Debug("SESSIONS: Spin started", "group", group, "names", len(names))

	h.broadcastLocked(SpinStartMessage{
		Type:       "spin_start",
		Group:      group,
		From:       anim.From,
		To:         anim.To,
		DurationMS: anim.Duration.Milliseconds(),
		Names:      names,
	})
	h.broadcastStateLocked()
}

// finishSpin runs on the wheel's frame clock once the animation completes.
func (h *Hub) finishSpin(group int, res wheel.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.spinning = false
	h.lastActive = h.clock.Now()

	if err := h.board.Assign(group, res.Item); err != nil {
		h.logger.Warn("SESSIONS: Could not assign spin result", "group", group, "name", res.Item, "err", err)
	} else {
		h.metrics.assigned()
		h.logger.Info("SESSIONS: Picked name", "group", h.board.DisplayTitle(group), "name", res.Item)
	}

	h.broadcastLocked(SpinResultMessage{
		Type:  "spin_result",
		Group: group,
		Name:  res.Item,
		Index: res.Index,
		Angle: res.FinalAngle,
	})
	h.broadcastStateLocked()
}

// closeAll disconnects all clients of this hub and stops its loop (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}

	h.stopOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const ownerCookieName = "spinbox_id"

func getOrSetOwnerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ownerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		cfg.logger.Error("SESSIONS: rand.Read failed", "err", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     ownerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// SessionManager holds a set of hubs keyed by session ID, so each
// $path/$session is its own isolated spinner.
type SessionManager struct {
	hubs        *xsync.Map[string, *Hub]
	idleTimeout time.Duration

	cfg     *Config
	clock   quartz.Clock
	metrics *Metrics
}

func newSessionManager(ctx context.Context, cfg *Config, clock quartz.Clock, metrics *Metrics) *SessionManager {
	sm := &SessionManager{
		hubs:        xsync.NewMap[string, *Hub](),
		idleTimeout: cfg.sessionTimeout,
		cfg:         cfg,
		clock:       clock,
		metrics:     metrics,
	}
	if sm.idleTimeout > 0 {
		clock.TickerFunc(ctx, sm.idleTimeout/2, func() error {
			sm.reap()
			return nil
		}, "sessions", "reaper")
	}
	return sm
}

func (sm *SessionManager) getHub(sessionID string) *Hub {
	if hub, ok := sm.hubs.Load(sessionID); ok {
		return hub
	}

	hub, loaded := sm.hubs.LoadOrStore(sessionID, newHub(sm.cfg, sessionID, sm.clock, sm.metrics))
	if !loaded {
		sm.metrics.sessionOpened()
		go hub.run()
	}
	return hub
}

// Len is the number of live sessions.
func (sm *SessionManager) Len() int {
	return sm.hubs.Size()
}

const (
	sessionIDLength  = 8
	sessionIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// bytes at or above this are rejected so every letter is equally likely
	sessionIDCutoff = 256 - 256%len(sessionIDLetters)
)

// randomID reads n unbiased letters from r.
func randomID(r io.Reader, n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)

	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= sessionIDCutoff {
				continue
			}
			out = append(out, sessionIDLetters[int(b)%len(sessionIDLetters)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}

// newSessionID generates a crypto-random session ID and ensures it doesn't
// collide with existing sessions.
func (sm *SessionManager) newSessionID() string {
	for {
		id, err := randomID(rand.Reader, sessionIDLength)
		if err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		if _, exists := sm.hubs.Load(id); !exists {
			return id
		}
	}
}

// reap removes hubs that have been idle longer than idleTimeout.
func (sm *SessionManager) reap() {
	cutoff := sm.clock.Now().Add(-sm.idleTimeout)

	sm.hubs.Range(func(id string, hub *Hub) bool {
		if hub.idleSince().Before(cutoff) {
			if _, ok := sm.hubs.LoadAndDelete(id); ok {
				sm.metrics.sessionClosed()
				sm.cfg.logger.Info("SESSIONS: Reaped idle session", "session", id)
				go hub.closeAll()
			}
		}
		return true
	})
}

// WebSocket handler that picks the hub based on :session
func serveWSForManager(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionID := ps.ByName("session")
		if sessionID == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}

		ownerID := getOrSetOwnerID(cfg, w, r)
		if ownerID == "" {
			http.Error(w, "unable to assign owner id", http.StatusInternalServerError)
			return
		}

		hub := sm.getHub(sessionID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.logger.Warn("SESSIONS: Upgrade failed", "ip", realIP(r), "err", err)
			return
		}

		// The server's read/write timeouts survive the hijack.
		_ = conn.NetConn().SetDeadline(time.Time{})

		client := &Client{
			conn:    conn,
			send:    make(chan any, 16),
			ownerID: ownerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.requests <- clientRequest{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current session URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName("session")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:session/qr; strip trailing "/qr" to get the session URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed assets/spinner/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetOwnerID(cfg, w, r)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewSession handles GET /path by generating a new random session ID
// (with server-side collision detection) and redirecting to /path/:session.
func redirectNewSession(cfg *Config, path string, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sessionID := sm.newSessionID()
		cfg.logger.Debug("SESSIONS: Created session", "path", path, "session", sessionID, "ip", realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+sessionID, http.StatusTemporaryRedirect)
	}
}

// registerSpinner sets up routes so that:
//   - $path                  → redirects to new random session (8-char ID)
//   - $path/:session         → HTML client
//   - $path/:session/ws      → WebSocket for that session
//   - $path/:session/qr      → PNG QR code for that session URL
func registerSpinner(cfg *Config, path string, mux *httprouter.Router, sm *SessionManager) {
	mux.GET(cfg.prefix+path, redirectNewSession(cfg, path, sm))

	mux.GET(cfg.prefix+path+"/:session", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:session/ws", serveWSForManager(cfg, sm))

	mux.GET(cfg.prefix+path+"/:session/qr", qrHandler)
}
