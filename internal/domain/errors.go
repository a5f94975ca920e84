package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrItemNotFound         = errors.New("item not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrAuctionClosed        = errors.New("auction closed")
	ErrItemUnavailable      = errors.New("item unavailable")
	ErrBidTooLow            = errors.New("bid too low")
	ErrNotSold              = errors.New("item not sold")
	ErrAlreadyCompleted     = errors.New("order already completed")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
)
