package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Labels used in the failure breakdown.
const (
	LabelUnexpected = "Unexpected response"
	LabelTimeout    = "Timeout"
	LabelCanceled   = "Canceled"
	LabelConnection = "Connection error"
	LabelHTTP       = "HTTP error response"
)

// ErrorLabel names a failed request for the failure breakdown. Timeouts and
// connection failures are grouped whatever wraps them; otherwise the innermost
// error decides: plain errors by message, typed errors by type name.
func ErrorLabel(err error) string {
	if err == nil {
		return LabelUnexpected
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return LabelTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return LabelTimeout
	case errors.Is(err, context.Canceled):
		return LabelCanceled
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return LabelConnection
	}

	root := err
	for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
		root = next
	}
	typeName := strings.TrimPrefix(fmt.Sprintf("%T", root), "*")
	switch typeName {
	case "errors.errorString":
		return root.Error()
	case "skiapi.HTTPError":
		return LabelHTTP
	}
	return typeName
}
