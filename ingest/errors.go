package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/lastmove/chatrelay/facebookapi"
	"github.com/lastmove/chatrelay/youtubeapi"
)

// FetchErrorClass sorts fetch failures into the handling buckets the pollers
// care about.
type FetchErrorClass int

const (
	// FetchTransient covers timeouts, 5xx responses, and malformed bodies:
	// retried on the next scheduled poll after backoff.
	FetchTransient FetchErrorClass = iota
	// FetchAuth covers expired or invalid credentials.
	FetchAuth
	// FetchQuota covers rate/quota rejections that should rotate credentials
	// instead of backing off.
	FetchQuota
	// FetchCanceled means the poller's context ended; stop, don't log.
	FetchCanceled
)

func (c FetchErrorClass) String() string {
	switch c {
	case FetchTransient:
		return "transient"
	case FetchAuth:
		return "auth"
	case FetchQuota:
		return "quota"
	case FetchCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClassifyFetchError decides how a poller should react to a fetch failure.
// Typed errors from the API clients are checked first; everything else falls
// back to message patterns. Unknown errors are treated as transient so the
// poller keeps running.
func ClassifyFetchError(err error) FetchErrorClass {
	if err == nil {
		return FetchTransient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FetchCanceled
	}
	if youtubeapi.IsQuotaError(err) {
		return FetchQuota
	}
	if facebookapi.IsAuthError(err) {
		return FetchAuth
	}

	lower := strings.ToLower(err.Error())

	if strings.Contains(lower, "quota") ||
		strings.Contains(lower, "429") ||
		strings.Contains(lower, "too many requests") {
		return FetchQuota
	}

	if strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid token") ||
		strings.Contains(lower, "token expired") ||
		strings.Contains(lower, "access denied") {
		return FetchAuth
	}

	return FetchTransient
}
