package common

import "fmt"

// ConnectionError reports that the target database could not be reached
type ConnectionError struct {
	Provider string
	Target   string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s target %s: %v", e.Provider, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// InsertError reports that the batch insert was rejected. Inserted is what the
// server acknowledged before failing, when the driver reports it.
type InsertError struct {
	Provider  string
	Target    string
	Attempted int
	Inserted  int
	Err       error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("failed to insert %d customers into %s target %s: %v",
		e.Attempted, e.Provider, e.Target, e.Err)
}

func (e *InsertError) Unwrap() error {
	return e.Err
}
