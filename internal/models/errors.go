package models

import "errors"

var (
	ErrInvalidItemID    = errors.New("invalid item ID")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidCounter   = errors.New("negative engagement counter")
	ErrItemNotFound     = errors.New("item not found")
)
