package domain

import (
	"sort"
	"strings"
)

// Filter selects tasks by completion state.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterCompleted   Filter = "completed"
	FilterUncompleted Filter = "uncompleted"
)

// Sort selects the ordering of a projection.
type Sort string

const (
	SortManual      Sort = "manual"
	SortDueAsc      Sort = "dueAscending"
	SortDueDesc     Sort = "dueDescending"
	SortCreatedAsc  Sort = "createdAscending"
	SortCreatedDesc Sort = "createdDescending"
)

// Query describes the view a caller wants projected from the collection.
type Query struct {
	Search string `json:"search"`
	Filter Filter `json:"filter"`
	Sort   Sort   `json:"sort"`
}

// Project derives the read-only view for q: search, then filter, then a
// stable sort. The input slice is never mutated. Unrecognized filter values
// behave as FilterAll, unrecognized sort values as SortManual.
func Project(tasks []Task, q Query) []Task {
	out := make([]Task, 0, len(tasks))
	needle := strings.ToLower(q.Search)
	for _, t := range tasks {
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		switch q.Filter {
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		case FilterUncompleted:
			if t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	less := lessFunc(q.Sort)
	// Stable sort: equal keys keep the collection's relative order, which
	// is what resolves manual-order ties after a subset reorder.
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func lessFunc(s Sort) func(a, b Task) bool {
	switch s {
	case SortDueAsc:
		return func(a, b Task) bool { return dueLess(a, b, false) }
	case SortDueDesc:
		return func(a, b Task) bool { return dueLess(a, b, true) }
	case SortCreatedAsc:
		return func(a, b Task) bool { return a.CreatedAt < b.CreatedAt }
	case SortCreatedDesc:
		return func(a, b Task) bool { return a.CreatedAt > b.CreatedAt }
	default:
		return func(a, b Task) bool { return a.Order < b.Order }
	}
}

// dueLess compares ISO due dates. A task without a due date sorts after
// every dated task in both directions; desc reverses only the dated
// comparison.
func dueLess(a, b Task, desc bool) bool {
	switch {
	case !a.HasDue():
		return false
	case !b.HasDue():
		return true
	}
	if desc {
		return a.Due > b.Due
	}
	return a.Due < b.Due
}
