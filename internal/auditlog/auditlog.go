// Package auditlog reconstructs a chronological change log from versioned
// snapshots of an entity.
//
// The algorithm only sees a sequence of (state, validFrom, validTo,
// changedBy) tuples. Where the sequence comes from, a history table, an
// in-memory recorder or an exported JSONL file, is up to the HistorySource.
package auditlog

import (
	"context"
	"slices"
	"time"

	id "marketparticipant/pkg/domain"
)

// Snapshot is one version of an entity. ValidTo is nil for the current
// version. ClosedBy, when set, identifies who ended the version.
type Snapshot[T any] struct {
	State     T          `json:"state"`
	ValidFrom time.Time  `json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	ChangedBy id.UserID  `json:"changed_by"`
	ClosedBy  id.UserID  `json:"closed_by,omitempty"`
}

// Entry is one semantic change to a tracked field.
type Entry[F any] struct {
	Field     F         `json:"field"`
	Group     string    `json:"group,omitempty"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	ChangedBy id.UserID `json:"changed_by"`
	Timestamp time.Time `json:"timestamp"`
}

// HistorySource yields the snapshots of one entity in chronological order.
type HistorySource[K any, T any] interface {
	History(ctx context.Context, key K) ([]Snapshot[T], error)
}

// Mode selects which snapshots a rule compares.
type Mode int

const (
	// CompareOnChange compares every snapshot with its predecessor.
	CompareOnChange Mode = iota
	// CompareOnCreation compares the empty state with the first snapshot.
	CompareOnCreation
	// CompareOnDeletion compares the last snapshot with the empty state once
	// that snapshot has been closed.
	CompareOnDeletion
)

// Rule tracks one field of T.
type Rule[T any, F any] struct {
	Field F
	Value func(T) string
	Mode  Mode
}

func OnChange[T any, F any](field F, value func(T) string) Rule[T, F] {
	return Rule[T, F]{Field: field, Value: value, Mode: CompareOnChange}
}

func OnCreation[T any, F any](field F, value func(T) string) Rule[T, F] {
	return Rule[T, F]{Field: field, Value: value, Mode: CompareOnCreation}
}

func OnDeletion[T any, F any](field F, value func(T) string) Rule[T, F] {
	return Rule[T, F]{Field: field, Value: value, Mode: CompareOnDeletion}
}

type buildConfig[T any] struct {
	groupBy func(T) string
}

// Option configures Build.
type Option[T any] func(*buildConfig[T])

// WithGroupBy diffs each group of snapshots independently. Used for child
// collections where every element has its own lifecycle.
func WithGroupBy[T any](key func(T) string) Option[T] {
	return func(c *buildConfig[T]) {
		c.groupBy = key
	}
}

// Build returns the entries produced by rules over snapshots, ordered by
// timestamp. Entries with equal timestamps keep rule order.
func Build[T any, F any](snapshots []Snapshot[T], rules []Rule[T, F], opts ...Option[T]) []Entry[F] {
	cfg := buildConfig[T]{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ordered := slices.Clone(snapshots)
	slices.SortStableFunc(ordered, func(a, b Snapshot[T]) int {
		return a.ValidFrom.Compare(b.ValidFrom)
	})

	var entries []Entry[F]
	for _, g := range group(ordered, cfg.groupBy) {
		entries = append(entries, diff(g.key, g.snapshots, rules)...)
	}
	return Sort(entries)
}

type snapshotGroup[T any] struct {
	key       string
	snapshots []Snapshot[T]
}

func group[T any](ordered []Snapshot[T], key func(T) string) []snapshotGroup[T] {
	if key == nil {
		return []snapshotGroup[T]{{snapshots: ordered}}
	}
	var groups []snapshotGroup[T]
	index := map[string]int{}
	for _, s := range ordered {
		k := key(s.State)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, snapshotGroup[T]{key: k})
		}
		groups[i].snapshots = append(groups[i].snapshots, s)
	}
	return groups
}

func diff[T any, F any](groupKey string, snapshots []Snapshot[T], rules []Rule[T, F]) []Entry[F] {
	if len(snapshots) == 0 {
		return nil
	}
	var entries []Entry[F]
	for _, r := range rules {
		switch r.Mode {
		case CompareOnCreation:
			first := snapshots[0]
			entries = append(entries, Entry[F]{
				Field:     r.Field,
				Group:     groupKey,
				Current:   r.Value(first.State),
				ChangedBy: first.ChangedBy,
				Timestamp: first.ValidFrom,
			})
		case CompareOnDeletion:
			last := snapshots[len(snapshots)-1]
			if last.ValidTo == nil {
				continue
			}
			by := last.ClosedBy
			if by.IsNil() {
				by = last.ChangedBy
			}
			entries = append(entries, Entry[F]{
				Field:     r.Field,
				Group:     groupKey,
				Previous:  r.Value(last.State),
				ChangedBy: by,
				Timestamp: *last.ValidTo,
			})
		default:
			prev := r.Value(snapshots[0].State)
			for _, s := range snapshots[1:] {
				cur := r.Value(s.State)
				if cur != prev {
					entries = append(entries, Entry[F]{
						Field:     r.Field,
						Group:     groupKey,
						Previous:  prev,
						Current:   cur,
						ChangedBy: s.ChangedBy,
						Timestamp: s.ValidFrom,
					})
				}
				prev = cur
			}
		}
	}
	return entries
}

// Sort orders entries chronologically, stable for equal timestamps.
func Sort[F any](entries []Entry[F]) []Entry[F] {
	slices.SortStableFunc(entries, func(a, b Entry[F]) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return entries
}

// Merge concatenates entry lists from several sources and sorts the result.
func Merge[F any](lists ...[]Entry[F]) []Entry[F] {
	var out []Entry[F]
	for _, l := range lists {
		out = append(out, l...)
	}
	return Sort(out)
}
