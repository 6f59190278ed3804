package hierarchy

import "errors"

// ErrNilLabeler is returned by NewBuilder when no labeler is supplied.
var ErrNilLabeler = errors.New("hierarchy: labeler is required")
