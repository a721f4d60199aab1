package dataset

// Filter returns the rows for which keep is true, in order.
func Filter[T any](rows []T, keep func(T) bool) []T {
	var out []T
	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// Map applies fn to every row.
func Map[T, U any](rows []T, fn func(T) U) []U {
	out := make([]U, 0, len(rows))
	for _, row := range rows {
		out = append(out, fn(row))
	}
	return out
}

// Distinct drops repeated rows, keeping the first occurrence of each.
func Distinct[T comparable](rows []T) []T {
	seen := make(map[T]struct{}, len(rows))
	var out []T
	for _, row := range rows {
		if _, ok := seen[row]; ok {
			continue
		}
		seen[row] = struct{}{}
		out = append(out, row)
	}
	return out
}

// Index groups rows by key. Rows whose key function reports false are left out, the way a
// null never equals anything in an equi-join.
func Index[T any, K comparable](rows []T, key func(T) (K, bool)) map[K][]T {
	idx := make(map[K][]T)
	for _, row := range rows {
		if k, ok := key(row); ok {
			idx[k] = append(idx[k], row)
		}
	}
	return idx
}

// Join is an inner hash equi-join. Output follows left order, then right order within a key.
// Left rows without a match produce nothing.
func Join[L, R any, K comparable, O any](left []L, right []R, leftKey func(L) (K, bool), rightKey func(R) (K, bool), emit func(L, R) O) []O {
	idx := Index(right, rightKey)

	var out []O
	for _, l := range left {
		k, ok := leftKey(l)
		if !ok {
			continue
		}
		for _, r := range idx[k] {
			out = append(out, emit(l, r))
		}
	}
	return out
}
