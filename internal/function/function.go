// Package function implements the per-function event-conjunction state
// machine: a Function accumulates one Event per subscription into rows,
// and a complete row becomes the argument set for one Invocation.
package function

import (
	"errors"
	"time"

	"github.com/schedulerd/schedulerd/internal/event"
)

// ErrDuplicateSub is returned by New when two entries of Subs repeat an
// event name; invariant 1 requires the list to be distinct.
var ErrDuplicateSub = errors.New("function: duplicate subscription name")

// ErrNoCompleteRow is returned by ConsumeReady when no row has completed.
var ErrNoCompleteRow = errors.New("function: no complete row to consume")

// Function is a mutable per-function record: its subscriptions, the
// pending-event matrix, the ready rows, and last-invocation metadata.
type Function struct {
	Name   string
	Subs   []string
	URL    string
	Method string
	Mock   bool

	// pending[e] holds, for subscription e, one slot per row; a nil entry
	// means the slot is explicitly empty (invariant 2).
	Pending map[string][]*event.Event

	// rows[r][i] holds Subs[i] when an event has filled that slot in row
	// r, or "" when the slot is still empty.
	Rows [][]string

	LastComplete *int
	LastInvoke   *int64
}

// New constructs a Function with an empty matrix. Method defaults to GET
// if left blank.
func New(name string, subs []string, url, method string, mock bool) (*Function, error) {
	seen := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		if _, ok := seen[s]; ok {
			return nil, ErrDuplicateSub
		}
		seen[s] = struct{}{}
	}

	if method == "" {
		method = "GET"
	}

	pending := make(map[string][]*event.Event, len(subs))
	for _, s := range subs {
		pending[s] = nil
	}

	return &Function{
		Name:    name,
		Subs:    append([]string(nil), subs...),
		URL:     url,
		Method:  method,
		Mock:    mock,
		Pending: pending,
		Rows:    nil,
	}, nil
}

// columnOf returns the column index of name within Subs, or -1.
func (f *Function) columnOf(name string) int {
	for i, s := range f.Subs {
		if s == name {
			return i
		}
	}
	return -1
}

func (f *Function) rowComplete(row []string) bool {
	for _, slot := range row {
		if slot == "" {
			return false
		}
	}
	return true
}

// Offer applies an incoming Event to the matching matrix. It returns true
// iff, after this event, a complete row exists and the function's
// last-complete pointer now identifies it.
//
// It scans every existing row for an open slot in this event's column
// before appending a new one, so a later row cannot starve an earlier
// one that is still waiting on this subscription.
func (f *Function) Offer(evt event.Event) bool {
	col := f.columnOf(evt.Name)
	if col < 0 {
		return false
	}

	if len(f.Rows) == 0 {
		return f.appendRow(evt, col)
	}

	for idx, row := range f.Rows {
		if row[col] != "" {
			continue
		}
		row[col] = evt.Name
		f.setPending(evt.Name, idx, &evt)
		if f.rowComplete(row) {
			i := idx
			f.LastComplete = &i
			return true
		}
		return false
	}

	return f.appendRow(evt, col)
}

// appendRow creates a new row with only column col filled, used both when
// the matrix is empty and when every existing row already has that column
// filled.
func (f *Function) appendRow(evt event.Event, col int) bool {
	row := make([]string, len(f.Subs))
	row[col] = evt.Name
	idx := len(f.Rows)
	f.Rows = append(f.Rows, row)
	f.setPending(evt.Name, idx, &evt)

	if f.rowComplete(row) {
		f.LastComplete = &idx
		return true
	}
	return false
}

// setPending records evt at row index idx for subscription name, growing
// the slice with explicit empty slots as needed (invariant 2).
func (f *Function) setPending(name string, idx int, evt *event.Event) {
	slice := f.Pending[name]
	for len(slice) <= idx {
		slice = append(slice, nil)
	}
	slice[idx] = evt
	f.Pending[name] = slice
}

// Argument is the per-subscription payload assembled for one Invocation.
type Argument struct {
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Invocation is the dispatch queue's element type: a target and method
// pulled from the Function plus the argument map a completed row produced.
type Invocation struct {
	FunctionName string
	URL          string
	Method       string
	Mock         bool
	Args         map[string]Argument
}

// Invoke builds the Invocation for the function's current last-complete
// row, retiring it via ConsumeReady.
func (f *Function) Invoke(loc *time.Location) (Invocation, error) {
	args, err := f.ConsumeReady(loc)
	if err != nil {
		return Invocation{}, err
	}
	return Invocation{
		FunctionName: f.Name,
		URL:          f.URL,
		Method:       f.Method,
		Mock:         f.Mock,
		Args:         args,
	}, nil
}

// ConsumeReady builds the argument map for the completed row, retires it,
// and stamps LastInvoke. loc controls the wall clock used for LastInvoke;
// a nil loc uses time.Local.
func (f *Function) ConsumeReady(loc *time.Location) (map[string]Argument, error) {
	if f.LastComplete == nil {
		return nil, ErrNoCompleteRow
	}
	idx := *f.LastComplete

	args := make(map[string]Argument, len(f.Subs))
	for _, name := range f.Subs {
		evts := f.Pending[name]
		var evt *event.Event
		if idx < len(evts) {
			evt = evts[idx]
		}
		arg := Argument{Timestamp: ""}
		if evt != nil {
			if evt.HasData() {
				arg.Data = evt.Data
			}
			arg.Timestamp = evt.CreatedAt.Format(time.RFC3339)
		}
		args[name] = arg
	}

	f.removeRow(idx)
	f.LastComplete = nil

	if loc == nil {
		loc = time.Local
	}
	ms := time.Now().In(loc).UnixMilli()
	f.LastInvoke = &ms

	return args, nil
}

// removeRow deletes row idx and the corresponding pending entry from every
// subscription's list, shifting higher indices down (invariant 3).
func (f *Function) removeRow(idx int) {
	f.Rows = append(f.Rows[:idx], f.Rows[idx+1:]...)
	for name, slice := range f.Pending {
		if idx < len(slice) {
			f.Pending[name] = append(slice[:idx], slice[idx+1:]...)
		}
	}
}

// RowStatus reports, for one row, which subscriptions are filled and which
// are still waiting.
type RowStatus struct {
	Ready   []string `json:"ready"`
	Waiting []string `json:"waiting"`
}

// RowStatuses returns a value-copy snapshot of every row's status, in row
// order, safe to return after the registry lock is released.
func (f *Function) RowStatuses() []RowStatus {
	out := make([]RowStatus, 0, len(f.Rows))
	for _, row := range f.Rows {
		rs := RowStatus{}
		for i, slot := range row {
			if slot == "" {
				rs.Waiting = append(rs.Waiting, f.Subs[i])
			} else {
				rs.Ready = append(rs.Ready, f.Subs[i])
			}
		}
		out = append(out, rs)
	}
	return out
}

// RowCount returns the number of in-flight rows, used by tests asserting
// invariant len(rows) == max over e of len(pending[e]).
func (f *Function) RowCount() int {
	return len(f.Rows)
}
