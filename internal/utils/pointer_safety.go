package utils

// Ptr returns a pointer to v. Used for optional request fields.
func Ptr[T any](v T) *T {
	return &v
}
