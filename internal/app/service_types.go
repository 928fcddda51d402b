package app

// CategorizedError tags an error with the counter family it should be
// attributed to in the metrics snapshot.
type CategorizedError struct {
	Category string
	Err      error
}

func (e *CategorizedError) Error() string {
	return e.Err.Error()
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}
