package api

import "errors"

var (
	// ErrProcessing means the generation result is not ready yet; the caller
	// should poll again.
	ErrProcessing = errors.New("referral is still processing")
)
