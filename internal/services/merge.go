package services

import "sismobi/internal/core"

// MergeAlerts appends the generated alerts whose id is not already present.
// It returns the merged slice and the alerts that were added. Existing alerts,
// resolved or not, are never replaced.
func MergeAlerts(existing, generated []core.Alert) (merged, added []core.Alert) {
	return mergeByID(existing, generated, func(a core.Alert) string { return a.ID })
}

// MergeTransactions appends the projected transactions whose id is not already present.
func MergeTransactions(existing, projected []core.Transaction) (merged, added []core.Transaction) {
	return mergeByID(existing, projected, func(t core.Transaction) string { return t.ID })
}

func mergeByID[T any](existing, incoming []T, id func(T) string) ([]T, []T) {
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, e := range existing {
		seen[id(e)] = true
	}

	merged := make([]T, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	var added []T
	for _, item := range incoming {
		k := id(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, item)
		added = append(added, item)
	}
	return merged, added
}
