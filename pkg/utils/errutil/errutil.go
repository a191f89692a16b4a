package errutil

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// Handle logs the error with its goerr values and stack trace, and reports
// it to Sentry when monitoring is configured. The error is returned as-is so
// callers can keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.CaptureException(err)
	}

	return err
}

// Flush waits for pending Sentry events to be delivered. No-op when
// monitoring is not configured.
func Flush(timeout time.Duration) {
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.Flush(timeout)
	}
}
