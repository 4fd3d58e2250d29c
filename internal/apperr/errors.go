package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrNotMarkdown = errors.New("not a markdown document")
	ErrExcluded    = errors.New("path is excluded")
)
