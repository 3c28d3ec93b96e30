package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/logger"
	"github.com/atharv3903/tourgraph/internal/model"
)

type snapshot struct {
	SessionID   string               `json:"session_id"`
	State       string               `json:"state"`
	Event       string               `json:"event"`
	Target      *model.TourWaypoint  `json:"target"`
	Remaining   []model.TourWaypoint `json:"remaining"`
	Path        []model.POI          `json:"path"`
	LastVisited *model.TourWaypoint  `json:"last_visited"`
}

func main() {
	server := flag.String("server", "http://127.0.0.1:8080", "tourgraph base URL")
	tourID := flag.String("tour", "pagoda-main", "tour to walk")
	speed := flag.Float64("speed", 1.4, "walking speed in m/s")
	interval := flag.Duration("interval", time.Second, "time between GPS samples")
	offset := flag.Float64("offset", 30, "start this many meters south of the first waypoint")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	start, err := startSession(*server, *tourID)
	if err != nil {
		log.Fatal("start session", zap.Error(err))
	}
	if len(start.Remaining) == 0 {
		log.Info("tour has no waypoints", zap.String("tour", *tourID))
		return
	}
	log.Info("session started",
		zap.String("session_id", start.SessionID),
		zap.Int("waypoints", len(start.Remaining)),
		zap.Int("preview_points", len(start.Path)),
	)

	stops := make([]model.Position, len(start.Remaining))
	for i, w := range start.Remaining {
		stops[i] = w.POI.Position()
	}
	samples := plan(southOf(stops[0], *offset), stops, *speed*interval.Seconds())

	wsURL := "ws" + strings.TrimPrefix(*server, "http") + "/api/sessions/" + url.PathEscape(start.SessionID) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatal("dial position stream", zap.Error(err))
	}
	defer conn.Close()

	// initial snapshot
	var snap snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		log.Fatal("read snapshot", zap.Error(err))
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for i, pos := range samples {
		if err := conn.WriteJSON(pos); err != nil {
			log.Fatal("send position", zap.Error(err))
		}
		if err := conn.ReadJSON(&snap); err != nil {
			log.Fatal("read snapshot", zap.Error(err))
		}

		fields := []zap.Field{
			zap.Int("sample", i),
			zap.Float64("lat", pos.Lat),
			zap.Float64("lng", pos.Lng),
			zap.String("state", snap.State),
			zap.Int("path_points", len(snap.Path)),
		}
		if snap.Target != nil {
			fields = append(fields, zap.String("target", snap.Target.POI.ID))
		}

		switch snap.Event {
		case "arrived":
			log.Info("waypoint reached", fields...)
		case "completed":
			log.Info("tour completed", fields...)
			closeStream(conn)
			return
		default:
			log.Debug("position", fields...)
		}
		<-ticker.C
	}

	log.Warn("walk ended before the tour completed", zap.String("state", snap.State))
	closeStream(conn)
}

func startSession(server, tourID string) (snapshot, error) {
	resp, err := http.Post(server+"/api/tours/"+url.PathEscape(tourID)+"/sessions", "application/json", nil)
	if err != nil {
		return snapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return snapshot{}, fmt.Errorf("start session: status %d", resp.StatusCode)
	}

	var s snapshot
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return snapshot{}, err
	}
	return s, nil
}

func closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "walk finished")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
