package main

// Merge reconciles freshly fetched records with the ones already persisted.
// All fresh records are kept in order; a stale record survives only when no
// fresh record shares its key, and survivors follow the fresh ones in their
// original order. Replacement is whole-record, fields are never combined.
func Merge[T any](fresh, stale []T, key func(T) string) []T {
	keys := make(map[string]struct{}, len(fresh))
	for _, r := range fresh {
		keys[key(r)] = struct{}{}
	}

	merged := make([]T, 0, len(fresh)+len(stale))
	merged = append(merged, fresh...)
	for _, r := range stale {
		if _, ok := keys[key(r)]; ok {
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
