package ensemble

// ValidRealizationsQuery restricts requested to the realizations available
// for an accessor.
//
// It returns nil when requested and available hold the same set, meaning
// "no filter": callers should then read every realization. Otherwise it
// returns the intersection in the order of requested, which is a non-nil
// empty slice when nothing matches. Callers must treat an empty result as
// "no data" and skip the accessor.
func ValidRealizationsQuery(requested, available []int) []int {
	availableSet := make(map[int]struct{}, len(available))
	for _, r := range available {
		availableSet[r] = struct{}{}
	}
	requestedSet := make(map[int]struct{}, len(requested))
	for _, r := range requested {
		requestedSet[r] = struct{}{}
	}

	if len(requestedSet) == len(availableSet) {
		same := true
		for r := range requestedSet {
			if _, ok := availableSet[r]; !ok {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}

	out := make([]int, 0, len(requested))
	seen := make(map[int]struct{}, len(requested))
	for _, r := range requested {
		if _, ok := availableSet[r]; !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Intersect returns the realizations present in both a and b, in the order
// of a.
func Intersect(a, b []int) []int {
	inB := make(map[int]struct{}, len(b))
	for _, r := range b {
		inB[r] = struct{}{}
	}
	out := make([]int, 0, len(a))
	for _, r := range a {
		if _, ok := inB[r]; ok {
			out = append(out, r)
		}
	}
	return out
}
