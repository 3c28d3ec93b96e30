// Package tour follows a user along an ordered list of waypoints, keeps the
// route to draw and reports arrivals.
package tour

import (
	"sort"

	"github.com/atharv3903/tourgraph/internal/algo"
	"github.com/atharv3903/tourgraph/internal/model"
)

type State int

const (
	StateIdle State = iota
	StateTracking
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateTracking:
		return "tracking"
	case StateCompleted:
		return "completed"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is the transition observed by a CheckArrival, Advance or Step call.
type Event int

const (
	EventNone Event = iota
	EventArrived
	EventCompleted
)

func (e Event) String() string {
	switch e {
	case EventArrived:
		return "arrived"
	case EventCompleted:
		return "completed"
	}
	return "none"
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// SortWaypoints orders waypoints by ascending Order, keeping input order
// for equal values.
func SortWaypoints(wps []model.TourWaypoint) []model.TourWaypoint {
	out := make([]model.TourWaypoint, len(wps))
	copy(out, wps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Tracker is the tour progress state machine. It is not safe for
// concurrent use; one owner must serialise all calls.
type Tracker struct {
	graph *algo.RouteGraph
	state State

	waypoints []model.TourWaypoint
	cursor    int // index of the current target in waypoints

	// chain is the preview path over all waypoints. offsets[i] is where
	// waypoint i's leg starts in chain; chainFrom is the slice start for
	// the current target.
	chain     []model.POI
	offsets   []int
	chainFrom int

	toTarget    []model.POI
	lastVisited *model.TourWaypoint
}

func NewTracker(graph *algo.RouteGraph) *Tracker {
	return &Tracker{graph: graph}
}

// LoadWaypoints starts tracking ordered from its first waypoint and builds
// the preview chain. An empty list completes the tour immediately.
func (t *Tracker) LoadWaypoints(ordered []model.TourWaypoint) {
	t.reset()
	t.waypoints = make([]model.TourWaypoint, len(ordered))
	copy(t.waypoints, ordered)

	if len(t.waypoints) == 0 {
		t.state = StateCompleted
		return
	}

	t.buildChain()
	t.chainFrom = t.offsets[0]
	t.state = StateTracking
}

func (t *Tracker) buildChain() {
	t.offsets = make([]int, len(t.waypoints))
	if len(t.waypoints) == 0 {
		return
	}

	prev, prevOK := t.snap(t.waypoints[0].POI.Position())
	for i := 1; i < len(t.waypoints); i++ {
		cur, curOK := t.snap(t.waypoints[i].POI.Position())

		var leg []model.POI
		if prevOK && curOK {
			leg = t.graph.FindShortestPath(prev.ID, cur.ID)
		}
		prev, prevOK = cur, curOK

		if len(leg) == 0 {
			// gap: nothing to draw for this leg
			t.offsets[i] = len(t.chain)
			continue
		}
		if n := len(t.chain); n > 0 && t.chain[n-1].ID == leg[0].ID {
			leg = leg[1:]
		}
		t.chain = append(t.chain, leg...)
		t.offsets[i] = len(t.chain) - 1
	}
}

func (t *Tracker) snap(p model.Position) (model.POI, bool) {
	if t.graph == nil {
		return model.POI{}, false
	}
	return t.graph.FindNearestPOI(p, true)
}

// OnUserPositionUpdate recomputes the segment from pos to the current
// target. It does nothing unless the tracker is tracking.
func (t *Tracker) OnUserPositionUpdate(pos model.Position) {
	if t.state != StateTracking {
		return
	}
	target := t.waypoints[t.cursor]

	from, ok1 := t.snap(pos)
	to, ok2 := t.snap(target.POI.Position())
	if !ok1 || !ok2 {
		t.toTarget = nil
		return
	}

	leg := t.graph.FindShortestPath(from.ID, to.ID)
	if len(leg) == 0 {
		t.toTarget = nil
		return
	}

	seg := make([]model.POI, 0, len(leg)+1)
	seg = append(seg, model.POI{ID: model.UserPointID, Lat: pos.Lat, Lng: pos.Lng})
	seg = append(seg, leg...)
	t.toTarget = seg
}

// CheckArrival advances past the current target when pos is inside its
// arrival radius.
func (t *Tracker) CheckArrival(pos model.Position) Event {
	target, ok := t.Target()
	if !ok {
		return EventNone
	}
	if !IsNear(pos, target.POI.Position(), target.ArrivalRadiusMeters) {
		return EventNone
	}
	return t.Advance()
}

// Step handles one sample of the position stream: arrival first, then the
// segment to whichever waypoint is the target afterwards.
func (t *Tracker) Step(pos model.Position) Event {
	ev := t.CheckArrival(pos)
	t.OnUserPositionUpdate(pos)
	return ev
}

// Advance marks the current target as visited.
//
// The remaining-count cases are kept apart on purpose:
//   - more than two: the next waypoint becomes the target and the chain is
//     re-sliced at its offset.
//   - two: the last waypoint becomes the target. There is no leg after it,
//     so the chain remainder is dropped and only the segment to the target
//     is drawn.
//   - one: the last waypoint is kept as the visited marker (LastVisited),
//     no target remains and the tour is completed.
func (t *Tracker) Advance() Event {
	if t.state != StateTracking {
		return EventNone
	}

	remaining := len(t.waypoints) - t.cursor
	t.toTarget = nil

	switch {
	case remaining > 2:
		t.cursor++
		t.chainFrom = t.offsets[t.cursor]
		return EventArrived
	case remaining == 2:
		t.cursor++
		t.chainFrom = len(t.chain)
		return EventArrived
	case remaining == 1:
		last := t.waypoints[t.cursor]
		t.lastVisited = &last
		t.cursor++
		t.chainFrom = len(t.chain)
		t.state = StateCompleted
		return EventCompleted
	}
	return EventNone
}

// Exit drops all tour state and returns to idle.
func (t *Tracker) Exit() {
	t.reset()
}

func (t *Tracker) reset() {
	t.state = StateIdle
	t.waypoints = nil
	t.cursor = 0
	t.chain = nil
	t.offsets = nil
	t.chainFrom = 0
	t.toTarget = nil
	t.lastVisited = nil
}

func (t *Tracker) State() State { return t.state }

// Target is the waypoint being walked to. ok is false outside tracking.
func (t *Tracker) Target() (model.TourWaypoint, bool) {
	if t.state != StateTracking {
		return model.TourWaypoint{}, false
	}
	return t.waypoints[t.cursor], true
}

// Remaining lists the current target followed by the waypoints after it.
func (t *Tracker) Remaining() []model.TourWaypoint {
	if t.state != StateTracking {
		return []model.TourWaypoint{}
	}
	out := make([]model.TourWaypoint, len(t.waypoints)-t.cursor)
	copy(out, t.waypoints[t.cursor:])
	return out
}

// LastVisited is set once the final waypoint has been reached.
func (t *Tracker) LastVisited() (model.TourWaypoint, bool) {
	if t.lastVisited == nil {
		return model.TourWaypoint{}, false
	}
	return *t.lastVisited, true
}

// PreviewPath is the full chain computed at load time.
func (t *Tracker) PreviewPath() []model.POI {
	out := make([]model.POI, len(t.chain))
	copy(out, t.chain)
	return out
}

// ToTarget is the segment from the last position update to the target.
func (t *Tracker) ToTarget() []model.POI {
	out := make([]model.POI, len(t.toTarget))
	copy(out, t.toTarget)
	return out
}

// RenderPath is the segment to the current target followed by the part of
// the chain that is still ahead.
func (t *Tracker) RenderPath() []model.POI {
	if t.state != StateTracking {
		return []model.POI{}
	}

	var rest []model.POI
	if t.chainFrom < len(t.chain) {
		rest = t.chain[t.chainFrom:]
	}

	out := make([]model.POI, 0, len(t.toTarget)+len(rest))
	out = append(out, t.toTarget...)
	if n := len(out); n > 0 && len(rest) > 0 && out[n-1].ID == rest[0].ID {
		rest = rest[1:]
	}
	return append(out, rest...)
}
