// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

// ErrEmptySelection is returned when an anchor is requested for a
// collapsed selection.
var ErrEmptySelection = errors.New("empty selection")
