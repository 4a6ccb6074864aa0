package manifest

import (
	"sort"
)

// Move is a module whose chunk changed between two builds.
type Move struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Diff describes how chunk assignments changed between two builds.
type Diff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Moved   []Move   `json:"moved"`
	// Common is the number of modules present in both builds.
	Common int `json:"common"`
	// Stability is the fraction of common modules that kept their chunk,
	// 1 when there are no common modules.
	Stability float64 `json:"stability"`
	// Invalidated lists the chunks of the next build that gained, lost or
	// moved a module; their hashed file names change.
	Invalidated []string `json:"invalidated"`
	// RulesChanged is set when the builds used different rule sets.
	RulesChanged bool `json:"rulesChanged"`
}

// Compare computes the diff from prev to next.
func Compare(prev, next *Manifest) *Diff {
	d := &Diff{
		Added:        []string{},
		Removed:      []string{},
		Moved:        []Move{},
		Invalidated:  []string{},
		RulesChanged: prev.RulesDigest != next.RulesDigest,
	}
	touched := make(map[string]bool)

	for id, to := range next.Assignments {
		from, ok := prev.Assignments[id]
		if !ok {
			d.Added = append(d.Added, id)
			touched[to] = true
			continue
		}
		d.Common++
		if from != to {
			d.Moved = append(d.Moved, Move{ID: id, From: from, To: to})
			touched[to] = true
			touched[from] = true
		}
	}
	for id, from := range prev.Assignments {
		if _, ok := next.Assignments[id]; !ok {
			d.Removed = append(d.Removed, id)
			touched[from] = true
		}
	}

	if d.Common == 0 {
		d.Stability = 1
	} else {
		d.Stability = float64(d.Common-len(d.Moved)) / float64(d.Common)
	}

	// Only chunks that still exist in the next build get new file names.
	present := make(map[string]bool)
	for _, name := range next.Assignments {
		present[name] = true
	}
	for name := range touched {
		if present[name] {
			d.Invalidated = append(d.Invalidated, name)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Invalidated)
	sort.Slice(d.Moved, func(i, j int) bool { return d.Moved[i].ID < d.Moved[j].ID })
	return d
}

// Empty reports whether the two builds assigned every module identically.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Moved) == 0
}
