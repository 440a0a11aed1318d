package multi

import (
	"fmt"
	"sync"

	"github.com/tassie-labs/expect/session"
)

// GroupResult is the outcome of one labeled session's part in a group
// operation, grounded on original_source's multi/group.rs GroupResult.
type GroupResult struct {
	Label   string
	Success bool
	Output  string
	Err     error
}

// Group is a named collection of labeled sessions for coordinated
// operations, backed by the same Selector first-ready machinery. A
// Selector composes unlabeled, numerically-registered sessions; a Group
// adds the human-facing label a multi-session CLI or dialog-runner wants
// to report against.
type Group struct {
	name string

	mu     sync.Mutex
	labels map[ID]string
	sel    *Selector
}

// NewGroup returns an empty, named Group.
func NewGroup(name string) *Group {
	return &Group{name: name, labels: make(map[ID]string), sel: New()}
}

// Name returns the group's name.
func (g *Group) Name() string { return g.name }

// Add registers sess under label and returns its selector ID.
func (g *Group) Add(label string, sess *session.Session) ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.sel.Register(sess)
	g.labels[id] = label
	return id
}

// Remove drops a session from the group.
func (g *Group) Remove(id ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.labels, id)
	g.sel.Unregister(id)
}

// Len returns the number of sessions currently in the group.
func (g *Group) Len() int { return g.sel.Len() }

// Label returns the label bound to id, or "" if not present.
func (g *Group) Label(id ID) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.labels[id]
}

// Selector exposes the underlying Selector for first-ready operations
// scoped to this group's membership.
func (g *Group) Selector() *Selector { return g.sel }

// SendAllLabeled fans a write out to every session in the group and
// returns per-session results annotated with their labels.
func (g *Group) SendAllLabeled(data []byte) []GroupResult {
	g.mu.Lock()
	ids := make([]ID, 0, len(g.labels))
	for id := range g.labels {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	sendResults := g.sel.SendAll(ids, data)
	out := make([]GroupResult, len(sendResults))
	for i, r := range sendResults {
		out[i] = GroupResult{
			Label:   g.Label(r.ID),
			Success: r.Err == nil,
			Output:  fmt.Sprintf("%d bytes written", r.Written),
			Err:     r.Err,
		}
	}
	return out
}
