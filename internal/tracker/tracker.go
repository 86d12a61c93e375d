// Package tracker assigns persistent identifiers to per-frame detections using
// nearest-centroid matching. A Tracker is not safe for concurrent use; callers
// must serialise Update calls (see the session package).
package tracker

import (
	"slices"
	"sort"

	"github.com/kozaktomas/face-tracker/internal/geometry"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxMissed is the number of consecutive missed frames tolerated
// before an object is forgotten.
const DefaultMaxMissed = 13

// Object is a tracked object as seen after the latest Update.
type Object struct {
	ID       int            `json:"id"`
	Centroid geometry.Point `json:"centroid"`
	Missed   int            `json:"missed"`
}

// Changes lists the lifecycle transitions produced by the latest Update.
type Changes struct {
	Registered   []int `json:"registered,omitempty"`
	Deregistered []int `json:"deregistered,omitempty"`
}

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithIntegerCentroids controls whether centroids are truncated to whole
// pixels. Enabled by default; disable for normalized coordinates.
func WithIntegerCentroids(enabled bool) Option {
	return func(t *Tracker) {
		t.integer = enabled
	}
}

// Tracker maintains the id -> centroid mapping across frames.
type Tracker struct {
	nextID    int
	maxMissed int
	integer   bool

	// order holds active ids in registration order; it is the row order of
	// the distance matrix.
	order   []int
	objects map[int]*Object

	last Changes
}

// New creates a tracker that forgets objects after more than maxMissed
// consecutive frames without a match. Negative values are treated as zero.
func New(maxMissed int, opts ...Option) *Tracker {
	t := &Tracker{
		nextID:    1,
		maxMissed: max(maxMissed, 0),
		integer:   true,
		objects:   make(map[int]*Object),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update consumes the detections of one frame and returns the id -> centroid
// mapping after this frame. The returned map is a copy owned by the caller.
func (t *Tracker) Update(boxes []geometry.BBox) map[int]geometry.Point {
	t.last = Changes{}

	if len(boxes) == 0 {
		for _, id := range slices.Clone(t.order) {
			t.markMissed(id)
		}
		return t.Snapshot()
	}

	centroids := make([]geometry.Point, len(boxes))
	for i, b := range boxes {
		if t.integer {
			centroids[i] = b.IntCentroid()
		} else {
			centroids[i] = b.Centroid()
		}
	}

	if len(t.order) == 0 {
		for _, c := range centroids {
			t.register(c)
		}
		return t.Snapshot()
	}

	t.match(centroids)
	return t.Snapshot()
}

// match performs the greedy row-priority assignment between the tracked
// objects (rows) and the new centroids (columns).
func (t *Tracker) match(centroids []geometry.Point) {
	ids := slices.Clone(t.order)
	rows, cols := len(ids), len(centroids)

	dist := mat.NewDense(rows, cols, nil)
	for r, id := range ids {
		for c, p := range centroids {
			dist.Set(r, c, geometry.Distance(t.objects[id].Centroid, p))
		}
	}

	rowMin := make([]float64, rows)
	rowArgMin := make([]int, rows)
	for r := 0; r < rows; r++ {
		row := dist.RawRowView(r)
		rowArgMin[r] = floats.MinIdx(row)
		rowMin[r] = row[rowArgMin[r]]
	}

	priority := make([]int, rows)
	for r := range priority {
		priority[r] = r
	}
	sort.SliceStable(priority, func(i, j int) bool {
		return rowMin[priority[i]] < rowMin[priority[j]]
	})

	usedRows := make(map[int]bool, rows)
	usedCols := make(map[int]bool, cols)
	for _, r := range priority {
		c := rowArgMin[r]
		if usedRows[r] || usedCols[c] {
			continue
		}
		obj := t.objects[ids[r]]
		obj.Centroid = centroids[c]
		obj.Missed = 0
		usedRows[r] = true
		usedCols[c] = true
	}

	// More (or as many) objects than detections: unmatched objects missed a
	// frame. Otherwise every unmatched detection becomes a new object, and no
	// object is marked missed.
	if rows >= cols {
		for r, id := range ids {
			if !usedRows[r] {
				t.markMissed(id)
			}
		}
		return
	}
	for c, p := range centroids {
		if !usedCols[c] {
			t.register(p)
		}
	}
}

func (t *Tracker) register(c geometry.Point) {
	id := t.nextID
	t.nextID++
	t.objects[id] = &Object{ID: id, Centroid: c}
	t.order = append(t.order, id)
	t.last.Registered = append(t.last.Registered, id)
}

func (t *Tracker) deregister(id int) {
	delete(t.objects, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	t.last.Deregistered = append(t.last.Deregistered, id)
}

func (t *Tracker) markMissed(id int) {
	obj := t.objects[id]
	obj.Missed++
	if obj.Missed > t.maxMissed {
		t.deregister(id)
	}
}

// Snapshot returns a copy of the current id -> centroid mapping.
func (t *Tracker) Snapshot() map[int]geometry.Point {
	out := make(map[int]geometry.Point, len(t.order))
	for _, id := range t.order {
		out[id] = t.objects[id].Centroid
	}
	return out
}

// Objects returns the tracked objects in registration order.
func (t *Tracker) Objects() []Object {
	out := make([]Object, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.objects[id])
	}
	return out
}

// LastChanges reports ids registered and deregistered by the latest Update.
func (t *Tracker) LastChanges() Changes {
	return Changes{
		Registered:   slices.Clone(t.last.Registered),
		Deregistered: slices.Clone(t.last.Deregistered),
	}
}

// Len returns the number of tracked objects.
func (t *Tracker) Len() int {
	return len(t.order)
}

// NextID returns the identifier the next registration will receive.
func (t *Tracker) NextID() int {
	return t.nextID
}

// MaxMissed returns the configured miss tolerance.
func (t *Tracker) MaxMissed() int {
	return t.maxMissed
}
