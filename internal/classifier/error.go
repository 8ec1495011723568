package classifier

var _ error = (*Error)(nil)

const (
	// ErrInvalidCategory indicates that an external categorizer answered with an unknown category.
	ErrInvalidCategory = Error("invalid category")
	// ErrClassificationFallback indicates that the keyword categorizer was used because the external one failed.
	ErrClassificationFallback = Error("external categorization failed")
)

// Error is a classifier error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
