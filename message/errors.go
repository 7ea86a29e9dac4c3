package message

import "errors"

var (
	// ErrTooShort indicates a decoder was handed fewer bytes than its
	// message-ID requires.
	ErrTooShort = errors.New("message: payload too short for message id")

	// ErrUnknownMessageID indicates the first payload byte did not match
	// any known message-ID.
	ErrUnknownMessageID = errors.New("message: unknown message id")

	// ErrInvalidAmount indicates a request amount was not a positive value
	// representable in the fixed-width amount field.
	ErrInvalidAmount = errors.New("message: invalid amount")

	// ErrFieldTooLong indicates a caller-supplied field value does not fit
	// its fixed wire width.
	ErrFieldTooLong = errors.New("message: field value exceeds fixed wire width")
)
