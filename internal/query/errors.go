package query

import (
	"fmt"
	"strings"
)

// InvalidRequestError means a request lacks the routing information needed
// to send it. It is raised before anything is serialized or sent.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// ValidateLayout checks the one thing a request needs before it can be routed.
func ValidateLayout(layout string) error {
	if strings.TrimSpace(layout) == "" {
		return &InvalidRequestError{Reason: "layout is required"}
	}
	return nil
}
