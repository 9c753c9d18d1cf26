package client

import "fmt"

// RemoteError is a non-success answer from the Data API.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("data api: status %d, code %s: %s", e.Status, e.Code, e.Message)
}
