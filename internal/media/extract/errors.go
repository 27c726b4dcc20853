package extract

import (
	"fmt"
	"strings"
)

// ThumbnailFailure describes one frame that could not be extracted.
type ThumbnailFailure struct {
	Index     int
	Timestamp float64
	Err       error
}

// PartialError is returned under the partial policy when some frames failed.
// The accompanying path slice holds only the successful frames.
type PartialError struct {
	Requested int
	Failures  []ThumbnailFailure
}

func (e *PartialError) Error() string {
	indices := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		indices = append(indices, fmt.Sprintf("%d", failure.Index))
	}
	msg := fmt.Sprintf("%d of %d thumbnails failed (indices %s)", len(e.Failures), e.Requested, strings.Join(indices, ","))
	if len(e.Failures) > 0 && e.Failures[0].Err != nil {
		msg += ": " + e.Failures[0].Err.Error()
	}
	return msg
}

// Unwrap exposes every per-frame failure.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		if failure.Err != nil {
			errs = append(errs, failure.Err)
		}
	}
	return errs
}
