package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"ai-interviewer/internal/proctor"
	"ai-interviewer/internal/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// shellMessage is what the presentation shell sends over the proctor
// socket: camera frames and environment guard events.
type shellMessage struct {
	Type  string `json:"type"`
	Image string `json:"image,omitempty"`
}

type proctorFeedback struct {
	Type        string            `json:"type"`
	FaceCount   int               `json:"face_count"`
	Consecutive int               `json:"consecutive_count"`
	Faces       []proctor.FaceBox `json:"faces"`
}

type snapshotUpdate struct {
	Type     string           `json:"type"`
	Snapshot session.Snapshot `json:"snapshot"`
}

type proctorSocket struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
}

// handleProctorSocket owns the proctoring side of one session: the
// shell streams camera frames and guard events up, the engine streams
// detection feedback and transcript updates down. The integrity
// monitor lives for exactly as long as this socket or the session,
// whichever ends first.
func (s *Server) handleProctorSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]

	c := s.manager.Get(sessionID)
	if c == nil {
		http.Error(w, "invalid or expired session", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed for session %s: %v", sessionID, err)
		return
	}

	sock := &proctorSocket{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 64),
	}
	s.mu.Lock()
	if old := s.socks[sessionID]; old != nil {
		old.close()
	}
	s.socks[sessionID] = sock
	s.mu.Unlock()

	source := proctor.NewPushSource()
	monitor := proctor.NewMonitor(proctor.Config{
		Source:        source,
		Detector:      s.detector,
		Interval:      s.cfg.SampleInterval,
		Threshold:     s.cfg.ViolationThreshold,
		DeviceTimeout: s.cfg.DeviceTimeout,
		OnViolation: func() {
			c.Terminate("the proctor detected a sustained integrity violation")
		},
		OnDegraded: func(err error) {
			c.NoteDeviceIssue(err)
		},
		OnSample: func(det proctor.Detection, consecutive int) {
			sock.sendProctor(det, consecutive)
		},
	})
	c.AttachMonitor(monitor)
	monitor.Start(context.Background())

	guard := session.NewEnvironmentGuard(c)

	go sock.writePump()
	sock.readPump(source, guard)

	// Socket teardown releases the camera sampling loop even when the
	// session itself is still live.
	monitor.Stop()
	s.mu.Lock()
	if s.socks[sessionID] == sock {
		delete(s.socks, sessionID)
	}
	s.mu.Unlock()
	sock.close()
}

func (sock *proctorSocket) readPump(source *proctor.PushSource, guard *session.EnvironmentGuard) {
	defer sock.close()

	sock.conn.SetReadLimit(4 << 20)
	_ = sock.conn.SetReadDeadline(time.Now().Add(pongWait))
	sock.conn.SetPongHandler(func(string) error {
		return sock.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("proctor socket error for session %s: %v", sock.sessionID, err)
			}
			return
		}

		var msg shellMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "frame":
			frame, err := decodeFrame(msg.Image)
			if err != nil {
				log.Printf("dropping malformed frame for session %s: %v", sock.sessionID, err)
				continue
			}
			source.Push(frame)
		case "fullscreen_lost":
			guard.PresentationLost()
		case "visibility_lost":
			guard.FocusLost()
		}
	}
}

func (sock *proctorSocket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sock.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sock.send:
			_ = sock.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sock.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sock.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = sock.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sock.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (sock *proctorSocket) sendProctor(det proctor.Detection, consecutive int) {
	data, err := json.Marshal(proctorFeedback{
		Type:        "proctor",
		FaceCount:   det.FaceCount,
		Consecutive: consecutive,
		Faces:       det.Faces,
	})
	if err != nil {
		return
	}
	sock.enqueue(data)
}

func (sock *proctorSocket) sendUpdate(snap session.Snapshot) {
	data, err := json.Marshal(snapshotUpdate{Type: "update", Snapshot: snap})
	if err != nil {
		return
	}
	sock.enqueue(data)
}

func (sock *proctorSocket) enqueue(data []byte) {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	if sock.closed {
		return
	}
	select {
	case sock.send <- data:
	default:
		// Slow consumer: drop rather than stall the monitor.
	}
}

func (sock *proctorSocket) close() {
	sock.closeOnce.Do(func() {
		sock.mu.Lock()
		sock.closed = true
		sock.mu.Unlock()
		close(sock.send)
		_ = sock.conn.Close()
	})
}

func decodeFrame(image string) ([]byte, error) {
	if idx := strings.Index(image, ","); idx != -1 && strings.HasPrefix(image, "data:") {
		image = image[idx+1:]
	}
	return base64.StdEncoding.DecodeString(image)
}
