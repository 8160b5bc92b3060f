package timeline

import "errors"

var (
	ErrInvalidRegion     = errors.New("invalid region")
	ErrNotFound          = errors.New("region not found")
	ErrInvalidTransition = errors.New("invalid marker transition")
)
