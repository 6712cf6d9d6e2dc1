package kafka

import (
	"context"
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"connection closed",
	"dial tcp",
}

// IsConnectionError checks if a Kafka error is a connection-level error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, p := range connectionPatterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsRetryableError determines if a publish error should trigger a retry:
// temporary broker errors and connection failures are, context errors and
// permanent broker errors such as an unknown topic are not.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	var werr kafkago.WriteErrors
	if errors.As(err, &werr) {
		for _, e := range werr {
			if e != nil && !IsRetryableError(e) {
				return false
			}
		}
		return true
	}
	return IsConnectionError(err)
}
