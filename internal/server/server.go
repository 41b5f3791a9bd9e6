package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"ai-interviewer/internal/proctor"
	"ai-interviewer/internal/session"
	"ai-interviewer/internal/store"
)

type Config struct {
	Addr           string
	MaxResumeBytes int64

	SampleInterval     time.Duration
	ViolationThreshold int
	DeviceTimeout      time.Duration

	// Progress reports the interview question count for the status
	// endpoint; nil when the collaborator is remote.
	Progress func(sessionID string) (int, bool)
}

// Server is the transport boundary between the presentation shell and
// the session engine: JSON endpoints for the turn protocol plus one
// WebSocket per session for proctoring traffic.
type Server struct {
	cfg      Config
	manager  *session.Manager
	store    store.Store
	detector proctor.Detector

	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	socks map[string]*proctorSocket
}

func New(cfg Config, manager *session.Manager, st store.Store, detector proctor.Detector) *Server {
	if cfg.MaxResumeBytes <= 0 {
		cfg.MaxResumeBytes = 16 << 20
	}
	return &Server{
		cfg:      cfg,
		manager:  manager,
		store:    st,
		detector: detector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// The shell is served from a different origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		socks: make(map[string]*proctorSocket),
	}
}

func (s *Server) router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/start-interview", s.handleStartInterview).Methods("POST")
	router.HandleFunc("/api/chat", s.handleChat).Methods("POST")
	router.HandleFunc("/api/skip", s.handleSkip).Methods("POST")
	router.HandleFunc("/api/end-interview", s.handleEndInterview).Methods("POST")
	router.HandleFunc("/api/session-status/{sessionID}", s.handleSessionStatus).Methods("GET")
	router.HandleFunc("/api/results/{sessionID}", s.handleResults).Methods("GET")
	router.HandleFunc("/ws/{sessionID}", s.handleProctorSocket)

	return router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("🌐 Interview engine listening on %s", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// PushUpdate forwards a session state change to its proctor socket, if
// one is attached.
func (s *Server) PushUpdate(c *session.Controller) {
	s.mu.Lock()
	sock := s.socks[c.ID()]
	s.mu.Unlock()
	if sock != nil {
		sock.sendUpdate(c.Snapshot())
	}
}
