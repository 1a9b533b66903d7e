package services

import (
	apperrors "github.com/charlesng35/larkrelay/pkg/errors"
)

// ErrMissingTarget indicates a broadcast without a webhook url.
var ErrMissingTarget = apperrors.NewBadRequest("webhook url is required")

// upstreamError marks a failed third-party fetch so the HTTP layer answers 502.
func upstreamError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.ErrUpstream.WithInternal(err)
}
