package tour

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/algo"
	"github.com/atharv3903/tourgraph/internal/model"
)

var (
	ErrSessionNotFound = fmt.Errorf("session %w", model.ErrNotFound)
	ErrTourNotFound    = fmt.Errorf("tour %w", model.ErrNotFound)
)

// TourSource loads tour definitions. Misses wrap model.ErrNotFound.
type TourSource interface {
	Tour(ctx context.Context, tourID string) (model.Tour, error)
	TourWaypoints(ctx context.Context, tourID string) ([]model.TourWaypoint, error)
}

// GraphSource returns the shared graph of a dataset.
type GraphSource interface {
	Graph(ctx context.Context, dataset string) (*algo.RouteGraph, error)
}

// Snapshot is what a renderer needs after each update.
type Snapshot struct {
	SessionID   string               `json:"session_id"`
	TourID      string               `json:"tour_id"`
	Dataset     string               `json:"dataset"`
	State       State                `json:"state"`
	Event       Event                `json:"event"`
	Target      *model.TourWaypoint  `json:"target,omitempty"`
	Remaining   []model.TourWaypoint `json:"remaining"`
	Path        []model.POI          `json:"path"`
	LastVisited *model.TourWaypoint  `json:"last_visited,omitempty"`
}

type session struct {
	mu       sync.Mutex
	id       string
	tour     model.Tour
	tracker  *Tracker
	lastSeen time.Time
}

func (s *session) snapshot(ev Event) Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		TourID:    s.tour.ID,
		Dataset:   s.tour.Dataset,
		State:     s.tracker.State(),
		Event:     ev,
		Remaining: s.tracker.Remaining(),
		Path:      s.tracker.RenderPath(),
	}
	if t, ok := s.tracker.Target(); ok {
		snap.Target = &t
	}
	if lv, ok := s.tracker.LastVisited(); ok {
		snap.LastVisited = &lv
	}
	return snap
}

// Sessions owns one Tracker per running tour. Calls for the same session
// are serialised by that session's mutex.
type Sessions struct {
	tours  TourSource
	graphs GraphSource
	logger *zap.Logger
	now    func() time.Time

	mu sync.RWMutex
	m  map[string]*session
}

func NewSessions(tours TourSource, graphs GraphSource, logger *zap.Logger) *Sessions {
	return &Sessions{
		tours:  tours,
		graphs: graphs,
		logger: logger,
		now:    time.Now,
		m:      make(map[string]*session),
	}
}

// Start loads a tour and its dataset graph and begins tracking it.
func (s *Sessions) Start(ctx context.Context, tourID string) (Snapshot, error) {
	t, err := s.tours.Tour(ctx, tourID)
	if errors.Is(err, model.ErrNotFound) {
		return Snapshot{}, fmt.Errorf("%s: %w", tourID, ErrTourNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load tour %s: %w", tourID, err)
	}
	wps, err := s.tours.TourWaypoints(ctx, tourID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load waypoints of %s: %w", tourID, err)
	}
	g, err := s.graphs.Graph(ctx, t.Dataset)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load graph %s: %w", t.Dataset, err)
	}

	tr := NewTracker(g)
	tr.LoadWaypoints(SortWaypoints(wps))

	sess := &session{
		id:       uuid.NewString(),
		tour:     t,
		tracker:  tr,
		lastSeen: s.now(),
	}

	s.mu.Lock()
	s.m[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("tour session started",
		zap.String("session_id", sess.id),
		zap.String("tour_id", t.ID),
		zap.String("dataset", t.Dataset),
		zap.Int("waypoints", len(wps)),
		zap.Int("preview_points", len(tr.PreviewPath())),
	)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(EventNone), nil
}

func (s *Sessions) get(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// Update feeds one position sample to the session.
func (s *Sessions) Update(id string, pos model.Position) (Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.lastSeen = s.now()
	ev := sess.tracker.Step(pos)

	switch ev {
	case EventArrived:
		target, _ := sess.tracker.Target()
		s.logger.Info("waypoint reached",
			zap.String("session_id", id),
			zap.Int("next_order", target.Order),
			zap.String("next_poi", target.POI.ID),
		)
	case EventCompleted:
		s.logger.Info("tour completed", zap.String("session_id", id), zap.String("tour_id", sess.tour.ID))
	}

	return sess.snapshot(ev), nil
}

func (s *Sessions) Snapshot(id string) (Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(EventNone), nil
}

// Exit ends the tour and forgets the session.
func (s *Sessions) Exit(id string) error {
	s.mu.Lock()
	sess, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}

	sess.mu.Lock()
	sess.tracker.Exit()
	sess.mu.Unlock()

	s.logger.Info("tour session exited", zap.String("session_id", id))
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Reap exits sessions that have not been updated for idle.
func (s *Sessions) Reap(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	var stale []string
	s.mu.RLock()
	for id, sess := range s.m {
		sess.mu.Lock()
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
		sess.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, id := range stale {
		_ = s.Exit(id)
	}
	if len(stale) > 0 {
		s.logger.Info("reaped idle tour sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunReaper calls Reap every interval until ctx is done.
func (s *Sessions) RunReaper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Reap(idle)
		case <-ctx.Done():
			return
		}
	}
}
