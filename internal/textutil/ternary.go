package textutil

// Ternary returns a when cond holds and b otherwise, so call sites can
// pick between two values inline.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
