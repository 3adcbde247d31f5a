package app

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/inertial_recorder/internal/history"
	"github.com/relabs-tech/inertial_recorder/internal/pipeline"
)

// WebServer exposes a running pipeline over HTTP.
type WebServer struct {
	p         *pipeline.Pipeline
	savePath  string
	staticDir string
	upgrader  websocket.Upgrader
}

// NewWebServer serves p and saves its log to savePath on POST /api/save.
func NewWebServer(p *pipeline.Pipeline, savePath string) *WebServer {
	return &WebServer{
		p:         p,
		savePath:  savePath,
		staticDir: "web",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type historyResponse struct {
	Interval float64         `json:"interval"`
	Capacity int             `json:"capacity"`
	Points   []history.Point `json:"points"`
}

type statsResponse struct {
	pipeline.Stats
	Session string `json:"session"`
	Rows    int    `json:"rows"`
}

type saveResponse struct {
	Rows int    `json:"rows"`
	Path string `json:"path"`
}

// Routes returns the handler tree.
func (s *WebServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orientation", s.handleOrientation)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("GET /ws/orientation", s.handleOrientationWS)

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	return mux
}

func (s *WebServer) handleOrientation(w http.ResponseWriter, r *http.Request) {
	pt, ok := s.p.History().Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, pt)
}

func (s *WebServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	h := s.p.History()
	writeJSON(w, http.StatusOK, historyResponse{
		Interval: h.Interval(),
		Capacity: h.Cap(),
		Points:   h.Snapshot(),
	})
}

func (s *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	rec := s.p.Log()
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:   s.p.Stats(),
		Session: rec.SessionID(),
		Rows:    rec.Rows(),
	})
}

func (s *WebServer) handleSave(w http.ResponseWriter, r *http.Request) {
	rows, err := s.p.Save(r.Context(), s.savePath)
	if err != nil {
		log.Printf("web: save %s: %v", s.savePath, err)
		http.Error(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Rows: rows, Path: s.savePath})
}

// handleOrientationWS streams every processed point until the client goes away.
func (s *WebServer) handleOrientationWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := s.p.Subscribe(32)
	defer cancel()

	// Reader goroutine notices the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(2 * time.Second)); err != nil {
				log.Printf("web: websocket deadline: %v", err)
				return
			}
			if err := conn.WriteJSON(u.Point); err != nil {
				log.Printf("web: websocket write: %v", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
