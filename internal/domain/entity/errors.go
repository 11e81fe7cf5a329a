package entity

import "errors"

var (
	// ErrSourceUnavailable means the video could not be fetched or opened.
	ErrSourceUnavailable = errors.New("video source unavailable")
	// ErrDownloadFailure is always reported together with ErrSourceUnavailable.
	ErrDownloadFailure = errors.New("video download failed")
	ErrDecodeFailure   = errors.New("frame decode failed")
	ErrEncodeFailure   = errors.New("frame encode failed")
)

var ErrGuideNotFound = errors.New("guide not found")
