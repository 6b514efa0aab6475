/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Malformed message.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrOriginNotAllowed:  {Code: ErrOriginNotAllowed, Message: "Origin not allowed.", Status: http.StatusForbidden},

	ErrUnknownEvent:    {Code: ErrUnknownEvent, Message: "Unsupported event %q."},
	ErrInvalidPayload:  {Code: ErrInvalidPayload, Message: "Invalid payload for event %q."},
	ErrMessageTooLong:  {Code: ErrMessageTooLong, Message: "Message is too long (max %d bytes)."},
	ErrTooManyMessages: {Code: ErrTooManyMessages, Message: "You are sending messages too fast.", Status: http.StatusTooManyRequests},
	ErrServerBusy:      {Code: ErrServerBusy, Message: "Server is busy. Please try again.", Status: http.StatusServiceUnavailable},

	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
