package needle

import "fmt"

// InvalidInputError reports a label volume that cannot be processed
// (missing physical metadata, zero size, inconsistent buffer length).
// It aborts the current cycle only; the session keeps running.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ConfigurationError reports a bad session parameter. It is returned at
// session construction time, before any cycle runs.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Param, e.Reason)
}
