package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/model"
	"github.com/atharv3903/tourgraph/internal/tour"
)

const (
	wsWriteWait = 5 * time.Second
	// a walking client reports every few seconds; two minutes of silence
	// means the phone went away
	wsReadWait = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are enforced by the CORS policy on the HTTP routes
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Start(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var pos model.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validPosition(pos) {
		writeError(w, http.StatusBadRequest, "lat/lng out of range")
		return
	}

	snap, err := s.Sessions.Update(chi.URLParam(r, "id"), pos)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleExitSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Exit(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionStream upgrades to a WebSocket. Every {lat,lng} message from
// the client is fed to the session and answered with the new snapshot.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.Sessions.Snapshot(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	log := s.logger.With(zap.String("session_id", id))
	log.Debug("position stream opened")

	if err := writeWS(conn, snap); err != nil {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadWait))

		var pos model.Position
		if err := conn.ReadJSON(&pos); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if err := writeWS(conn, errorResponse{Error: "bad position message"}); err != nil {
					return
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("position stream dropped", zap.Error(err))
			}
			return
		}
		if !validPosition(pos) {
			if err := writeWS(conn, errorResponse{Error: "lat/lng out of range"}); err != nil {
				return
			}
			continue
		}

		snap, err := s.Sessions.Update(id, pos)
		if errors.Is(err, tour.ErrSessionNotFound) {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
			return
		}
		if err != nil {
			log.Error("position update failed", zap.Error(err))
			return
		}
		if err := writeWS(conn, snap); err != nil {
			return
		}
	}
}

func writeWS(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

func validPosition(p model.Position) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
