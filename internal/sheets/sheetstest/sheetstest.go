// Package sheetstest provides a fake remote sheet web app for tests: queries
// are served from configured tables, commands are recorded for inspection.
package sheetstest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Command is one recorded POST, with the action already extracted.
type Command struct {
	Action string
	Body   map[string]any
}

// Server is a configurable stand-in for the remote query/command endpoint.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Tables maps a query action to its rows (first row is the header).
	Tables map[string][][]any
	// Raw maps a query action to a non-table data payload.
	Raw map[string]any
	// FailStatus makes an action answer with a bare HTTP status.
	FailStatus map[string]int
	// Reject makes an action answer success=false with the given message.
	Reject map[string]string
	// Commands collects every POST in arrival order.
	Commands []Command
}

func New() *Server {
	s := &Server{
		Tables:     map[string][][]any{},
		Raw:        map[string]any{},
		FailStatus: map[string]int{},
		Reject:     map[string]string{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetTable replaces one query table (header row first).
func (s *Server) SetTable(action string, rows [][]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tables[action] = rows
}

// Recorded returns a copy of the command log.
func (s *Server) Recorded() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.Commands...)
}

// CommandsFor filters the log by action.
func (s *Server) CommandsFor(action string) []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Command
	for _, c := range s.Commands {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.handleQuery(w, r)
		return
	}
	s.handleCommand(w, r)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	s.mu.Lock()
	status := s.FailStatus[action]
	reject, rejected := s.Reject[action]
	raw, hasRaw := s.Raw[action]
	table, hasTable := s.Tables[action]
	s.mu.Unlock()

	switch {
	case status != 0:
		w.WriteHeader(status)
	case rejected:
		writeEnvelope(w, false, nil, reject)
	case hasRaw:
		writeEnvelope(w, true, raw, "")
	case hasTable:
		writeEnvelope(w, true, table, "")
	default:
		writeEnvelope(w, true, [][]any{}, "")
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	action, _ := body["action"].(string)
	delete(body, "action")

	s.mu.Lock()
	status := s.FailStatus[action]
	reject, rejected := s.Reject[action]
	if status == 0 && !rejected {
		s.Commands = append(s.Commands, Command{Action: action, Body: body})
	}
	s.mu.Unlock()

	switch {
	case status != 0:
		w.WriteHeader(status)
	case rejected:
		writeEnvelope(w, false, nil, reject)
	default:
		writeEnvelope(w, true, nil, "")
	}
}

func writeEnvelope(w http.ResponseWriter, success bool, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	out := map[string]any{"success": success}
	if data != nil {
		out["data"] = data
	}
	if errMsg != "" {
		out["error"] = errMsg
	}
	_ = json.NewEncoder(w).Encode(out)
}
