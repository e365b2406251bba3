package classroom

// SetCodeFunc replaces the join code generator and returns a func restoring it.
func SetCodeFunc(fn func() (string, error)) (restore func()) {
	prev := newCodeFunc
	newCodeFunc = fn
	return func() { newCodeFunc = prev }
}
