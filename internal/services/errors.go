package services

import "errors"

var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPeerNotFound       = errors.New("peer not found")
	ErrOversizeFile       = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType    = errors.New("file type is not allowed")
	ErrStorageUnavailable = errors.New("storage service is not configured")
)
