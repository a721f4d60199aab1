package dataset

// Null is a nullable column value. It is comparable whenever T is, so rows built from
// Null fields can be used directly as map keys.
type Null[T comparable] struct {
	V     T
	Valid bool
}

// Value returns a non-null Null holding v.
func Value[T comparable](v T) Null[T] {
	return Null[T]{V: v, Valid: true}
}

// Ptr returns nil for null, or a pointer to a copy of the value.
func (n Null[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.V
	return &v
}
