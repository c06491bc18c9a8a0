package validation

import "errors"

var (
	ErrInvalidFileType = errors.New("file content does not match the requested media type")
	ErrFileTooLarge    = errors.New("file size exceeds the configured limit")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidOptions  = errors.New("invalid compression options")
)
