package retry

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry runs action until it succeeds or one of the strategies vetoes another
// attempt, returning the number of attempts made and the last error.
//
// Strategies run in order after each failure, so delaying strategies belong
// last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		attempts++

		err := action()
		if err == nil {
			return attempts, nil
		}

		if !shouldRetry(strategies, attempts, err) {
			return attempts, err
		}
	}
}

func shouldRetry(strategies []Strategy, attempts uint, err error) bool {
	for _, s := range strategies {
		if !s(attempts, err) {
			return false
		}
	}
	return true
}
