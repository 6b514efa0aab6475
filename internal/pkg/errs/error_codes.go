/*
Package errs provides custom error types and application-level error code constants.

These error codes identify request and protocol failures both in server logs and in the
error frames and HTTP bodies sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a request or frame body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrOriginNotAllowed indicates that the WebSocket handshake came from a disallowed origin.
	ErrOriginNotAllowed = 1008
)

// 2xxx: Session Protocol Errors
const (
	// ErrUnknownEvent indicates that the client sent a frame with an unsupported event type.
	ErrUnknownEvent = 2001

	// ErrInvalidPayload indicates that the payload of a known event could not be decoded.
	ErrInvalidPayload = 2002

	// ErrMessageTooLong indicates that a chat message exceeded the maximum length.
	ErrMessageTooLong = 2003

	// ErrTooManyMessages indicates that the connection is sending frames faster than allowed.
	ErrTooManyMessages = 2004

	// ErrServerBusy indicates that the session loop could not accept the event in time.
	ErrServerBusy = 2005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
