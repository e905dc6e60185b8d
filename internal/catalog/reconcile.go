package catalog

// Reconcile returns the elements of reference that also occur in other,
// in reference order and without duplicates.
func Reconcile(reference, other []string) []string {
	available := make(map[string]struct{}, len(other))
	for _, v := range other {
		available[v] = struct{}{}
	}

	seen := make(map[string]struct{}, len(reference))
	common := make([]string, 0, min(len(reference), len(other)))

	for _, v := range reference {
		if _, ok := available[v]; !ok {
			continue
		}

		if _, dup := seen[v]; dup {
			continue
		}

		seen[v] = struct{}{}
		common = append(common, v)
	}

	return common
}
