// Package fakeapi provides an in-process fake of the CMS backend for tests:
// the REST surface the request client talks to and the websocket endpoint
// the realtime channel dials.
//
// It is deliberately small. Handlers answer with the backend's
// {success, message, data} envelope, the socket endpoint validates the
// handshake token and lets tests push events to connected clients.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server is the fake backend. Fields are safe for concurrent use.
type Server struct {
	httpSrv *httptest.Server

	// ValidToken is the only token the login and socket handshake accept.
	ValidToken string

	mu      sync.Mutex
	clients map[*client]struct{}
	users   []map[string]any
	tasks   []map[string]any
	punches []map[string]any
	smsLog  []map[string]any

	// RejectHandshake makes the socket endpoint refuse every client.
	RejectHandshake bool
}

type client struct {
	ws *websocket.Conn
	mu sync.Mutex
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// New starts the fake backend. Callers own its lifetime via Close.
func New() *Server {
	s := &Server{
		ValidToken: "fake-token",
		clients:    make(map[*client]struct{}),
		users: []map[string]any{
			{"id": "u1", "name": "Asha Rao", "role": "admin"},
			{"id": "u2", "name": "Ravi Iyer", "role": "employee"},
		},
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/users", s.handleUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/save", s.handleSaveUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", s.handleUser).Methods(http.MethodGet)
	api.HandleFunc("/attendance/punch-in", s.handlePunch("in")).Methods(http.MethodPost)
	api.HandleFunc("/attendance/punch-out", s.handlePunch("out")).Methods(http.MethodPost)
	api.HandleFunc("/attendance/today", s.handleToday).Methods(http.MethodGet)
	api.HandleFunc("/sms/salary", s.handleSMS("salary")).Methods(http.MethodPost)
	api.HandleFunc("/sms/greeting", s.handleSMS("greeting")).Methods(http.MethodPost)
	api.HandleFunc("/tasks", s.handleTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/save", s.handleSaveTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/status", s.handleTaskStatus).Methods(http.MethodPut)
	api.HandleFunc("/dashboard/summary", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/socket", s.handleSocket)

	s.httpSrv = httptest.NewServer(r)
	return s
}

// Close shuts the backend down and drops every websocket client.
func (s *Server) Close() {
	s.mu.Lock()
	for c := range s.clients {
		c.ws.Close()
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()
	s.httpSrv.Close()
}

// BaseURL is the REST root, including the /api prefix.
func (s *Server) BaseURL() string {
	return s.httpSrv.URL + "/api"
}

// SocketURL is the websocket root, without the /socket path.
func (s *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http")
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// PushNotification sends a notification event to every connected client.
func (s *Server) PushNotification(payload any) {
	s.push(wsFrame{Event: "notification", Data: payload})
}

// DropClients closes every websocket client without a close frame,
// simulating a transport-level drop.
func (s *Server) DropClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		c.ws.Close()
	}
}

func (s *Server) push(f wsFrame) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		c.ws.WriteJSON(f) //nolint:errcheck
		c.mu.Unlock()
	}
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var auth struct {
		Event string `json:"event"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	ws.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	if err := ws.ReadJSON(&auth); err != nil || auth.Event != "auth" {
		ws.Close()
		return
	}
	ws.SetReadDeadline(time.Time{}) //nolint:errcheck

	if s.RejectHandshake || auth.Data.Token != s.ValidToken {
		ws.WriteJSON(wsFrame{Event: "connect_error", Data: map[string]any{"message": "invalid token"}}) //nolint:errcheck
		ws.Close()
		return
	}

	ws.WriteJSON(wsFrame{ //nolint:errcheck
		Event: "connected",
		Data: map[string]any{
			"message":   "authenticated",
			"user":      map[string]any{"id": "u1", "name": "Asha Rao", "role": "admin"},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})

	c := &client{ws: ws}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	// drain until the client goes away
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			ws.Close()
		}()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+s.ValidToken
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "malformed body"})
		return
	}
	if creds.Password != "secret" {
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"token": s.ValidToken,
		"user":  map[string]any{"id": "u1", "name": "Asha Rao", "email": creds.Email, "role": "admin"},
	}})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.users})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u["id"] == id {
			writeJSON(w, http.StatusOK, envelope{Success: true, Data: u})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "user not found"})
}

func (s *Server) handleSaveUser(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	var u map[string]any
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "malformed body"})
		return
	}
	s.mu.Lock()
	s.users = append(s.users, u)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "saved", Data: u})
}

func (s *Server) handlePunch(direction string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
			return
		}
		rec := map[string]any{
			"direction": direction,
			"time":      time.Now().UTC().Format(time.RFC3339),
		}
		s.mu.Lock()
		s.punches = append(s.punches, rec)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: rec})
	}
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.punches})
}

func (s *Server) handleSMS(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		s.mu.Lock()
		s.smsLog = append(s.smsLog, map[string]any{"kind": kind, "body": body})
		count := len(s.smsLog)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"sent": count}})
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	userID := r.URL.Query().Get("userId")
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.tasks))
	for _, t := range s.tasks {
		if userID == "" || t["userId"] == userID {
			out = append(out, t)
		}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out})
}

func (s *Server) handleSaveTask(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	var task map[string]any
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "malformed body"})
		return
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: task})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	id := mux.Vars(r)["id"]
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t["id"] == id {
			t["status"] = body.Status
			writeJSON(w, http.StatusOK, envelope{Success: true, Data: t})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "task not found"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"employees": len(s.users),
		"tasks":     len(s.tasks),
		"punches":   len(s.punches),
	}})
}
