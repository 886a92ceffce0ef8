package fileutil

import "errors"

// ErrTooLarge reports a copy that exceeded its byte limit.
var ErrTooLarge = errors.New("file exceeds size limit")
