// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/croplens/croplens/internal/advisor"
	"github.com/croplens/croplens/internal/state"
	"github.com/croplens/croplens/internal/trace"
)

// StateProvider is the slice of the pipeline the server needs.
type StateProvider interface {
	Snapshot() state.Snapshot
	Events() <-chan state.Event
	RecentEvents(window time.Duration) []state.Event
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type FieldPayload struct {
	Value      string    `json:"value"`
	Kind       string    `json:"kind"`
	Confidence float64   `json:"confidence"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type StateMessage struct {
	Type   string                  `json:"type"`
	Fields map[string]FieldPayload `json:"fields"`
	At     time.Time               `json:"at"`
}

type EventMessage struct {
	Type  string    `json:"type"`
	Field string    `json:"field"`
	Prev  string    `json:"prev"`
	New   string    `json:"new"`
	At    time.Time `json:"at"`
}

type AdviceMessage struct {
	Type            string   `json:"type"`
	Severity        string   `json:"severity"`
	Alerts          []string `json:"alerts"`
	Recommendations []string `json:"recommendations"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	provider   StateProvider
	adv        *advisor.Advisor
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server over a running pipeline.
func New(provider StateProvider, adv *advisor.Advisor) *Server {
	s := &Server{
		provider:   provider,
		adv:        adv,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	// Start broadcaster
	go s.broadcastEvents()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/advice", s.handleAdvice)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// New subscribers get the confirmed state immediately, then live
	// change events as the broadcaster delivers them.
	_ = wsjson.Write(baseCtx, conn, stateMessage(s.provider.Snapshot()))

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		// Clients may carry their own trace_id; replies and logs for
		// that message join the client's trace.
		ctx := baseCtx
		if tc, ok := trace.ExtractFromJSON(msg); ok {
			ctx = trace.WithContext(baseCtx, tc)
		}

		switch base.Type {
		case "state":
			_ = wsjson.Write(ctx, conn, stateMessage(s.provider.Snapshot()))
		case "advice":
			_ = wsjson.Write(ctx, conn, s.adviceMessage())
		default:
			trace.Logger(ctx).Debug("unknown message type", "type", base.Type)
		}
	}
}

func (s *Server) broadcastEvents() {
	for evt := range s.provider.Events() {
		msg := eventMessage(evt)

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				ctx, cancel := context.WithTimeout(context.Background(), BroadcastTimeout)
				defer cancel()
				_ = wsjson.Write(ctx, c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, stateMessage(s.provider.Snapshot()))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	window := DefaultEventWindow
	if v := r.URL.Query().Get("window_sec"); v != "" {
		sec, err := strconv.ParseFloat(v, 64)
		if err != nil || sec <= 0 {
			http.Error(w, "invalid window_sec", http.StatusBadRequest)
			return
		}
		window = time.Duration(sec * float64(time.Second))
	}

	events := s.provider.RecentEvents(window)
	msgs := make([]EventMessage, 0, len(events))
	for _, evt := range events {
		msgs = append(msgs, eventMessage(evt))
	}
	writeJSON(w, map[string]interface{}{"events": msgs})
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.adviceMessage())
}

func (s *Server) adviceMessage() AdviceMessage {
	report := s.adv.Evaluate(s.provider.Snapshot())
	return AdviceMessage{
		Type:            "advice",
		Severity:        report.Severity.String(),
		Alerts:          report.Alerts,
		Recommendations: advisor.Recommendations(report),
	}
}

func stateMessage(snap state.Snapshot) StateMessage {
	fields := make(map[string]FieldPayload, len(snap))
	for name, fs := range snap {
		fields[name] = FieldPayload{
			Value:      fs.Value.String(),
			Kind:       fs.Value.Kind.String(),
			Confidence: fs.Value.Confidence,
			AcceptedAt: fs.AcceptedAt,
		}
	}
	return StateMessage{Type: "state", Fields: fields, At: time.Now()}
}

func eventMessage(evt state.Event) EventMessage {
	return EventMessage{
		Type:  "event",
		Field: evt.Field,
		Prev:  evt.Prev.String(),
		New:   evt.New.String(),
		At:    evt.At,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
