/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Conversation and Messaging Business Logic Errors
const (
	// ErrConversationNotFound indicates that the referenced chat, room, or meeting does not exist.
	ErrConversationNotFound = 2101

	// ErrAccessDenied indicates that the requester is not a member of the referenced conversation.
	ErrAccessDenied = 2102

	// ErrRoomIsFull indicates that the room being joined has reached its maximum member capacity.
	ErrRoomIsFull = 2103

	// ErrRoomInactive indicates an operation against a room that has been deactivated.
	ErrRoomInactive = 2104

	// ErrRoomAdminRequired indicates that an operation restricted to room admins
	// was attempted by a regular member or moderator.
	ErrRoomAdminRequired = 2105

	// ErrAlreadyRoomMember indicates an attempt to add a user who is already a
	// current member of the room.
	ErrAlreadyRoomMember = 2106

	// ErrNotRoomMember indicates an operation against a user who is not a
	// current member of the room.
	ErrNotRoomMember = 2107

	// ErrRoomCreatorImmutable indicates an attempt to remove the room creator or
	// change their role.
	ErrRoomCreatorImmutable = 2108

	// ErrMessageContentEmpty indicates that a message was submitted without content.
	ErrMessageContentEmpty = 2201

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrMessageTypeInvalid indicates an unknown message type tag.
	ErrMessageTypeInvalid = 2203

	// ErrMeetingNotFound indicates that the referenced meeting does not exist.
	ErrMeetingNotFound = 2301

	// ErrMeetingEnded indicates an operation against a meeting that has already ended.
	ErrMeetingEnded = 2302

	// ErrNotMeetingHost indicates that an operation restricted to the host was attempted by a participant.
	ErrNotMeetingHost = 2303
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3001

	// ErrAlreadyLoggedIn indicates a login or register attempt from an already authenticated session.
	ErrAlreadyLoggedIn = 3002

	// ErrInvalidUsername indicates that the username does not satisfy the format rules.
	ErrInvalidUsername = 3003

	// ErrInvalidPassword indicates that the password does not satisfy the length rules.
	ErrInvalidPassword = 3004

	// ErrUserAlreadyExists indicates that the attempted username is already taken.
	ErrUserAlreadyExists = 3005

	// ErrInvalidCredentials indicates an incorrect username or password at login.
	ErrInvalidCredentials = 3006

	// ErrUserNotFound indicates that the referenced user account does not exist.
	ErrUserNotFound = 3007

	// ErrOldPasswordInvalid indicates that the current password supplied for a password change is wrong.
	ErrOldPasswordInvalid = 3008

	// ErrSelfChatInvalid indicates an attempt to open a private chat with oneself.
	ErrSelfChatInvalid = 3009
)

// 4xxx: File and Storage Errors
const (
	// ErrFileSizeTooLarge indicates that the declared upload size exceeds the limit.
	ErrFileSizeTooLarge = 4001

	// ErrFileTypeInvalid indicates a disallowed or mismatched MIME type or extension.
	ErrFileTypeInvalid = 4002

	// ErrFileStorageFailed indicates a failure talking to the object storage backend.
	ErrFileStorageFailed = 4003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistenceFailed indicates that a durable-store write failed and the operation was aborted.
	ErrPersistenceFailed = 5001
)
