package subscriber

// ValidationError describes input that can never succeed. The API maps it to
// 400 and no external call is made once it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
