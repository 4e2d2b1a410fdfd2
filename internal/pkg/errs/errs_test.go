package errs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewErrorKnownCode(t *testing.T) {
	err := NewError(ErrAccessDenied)
	require.Equal(t, ErrAccessDenied, err.Code)
	// Business failures ride an HTTP 200; the body code carries the outcome.
	require.Equal(t, http.StatusOK, err.Status)
	require.NotEmpty(t, err.Message)

	err = NewError(ErrRateLimitExceeded)
	require.Equal(t, http.StatusTooManyRequests, err.Status)
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(999999)
	require.Equal(t, ErrUnknown, err.Code)
	require.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewErrorDoesNotMutateTemplate(t *testing.T) {
	first := NewError(ErrInvalidParams)
	first.Message = "mutated"

	second := NewError(ErrInvalidParams)
	require.NotEqual(t, "mutated", second.Message)
}

func TestErrorStringContainsCodeAndStatus(t *testing.T) {
	err := NewError(ErrUnauthorized)
	require.Contains(t, err.Error(), "3001")
	require.Contains(t, err.Error(), "401")
}

func TestErrorMapCoversAllCodes(t *testing.T) {
	codes := []int{
		ErrInvalidParams, ErrUnsupportedMediaType, ErrInvalidJSONFormat,
		ErrExtraContentInBody, ErrRequestEntityTooLarge, ErrRateLimitExceeded,
		ErrConversationNotFound, ErrAccessDenied, ErrRoomIsFull, ErrRoomInactive,
		ErrRoomAdminRequired, ErrAlreadyRoomMember, ErrNotRoomMember, ErrRoomCreatorImmutable,
		ErrMessageContentEmpty, ErrMessageContentTooLong, ErrMessageTypeInvalid,
		ErrMeetingNotFound, ErrMeetingEnded, ErrNotMeetingHost,
		ErrUnauthorized, ErrAlreadyLoggedIn, ErrInvalidUsername, ErrInvalidPassword,
		ErrUserAlreadyExists, ErrInvalidCredentials, ErrUserNotFound,
		ErrOldPasswordInvalid, ErrSelfChatInvalid,
		ErrFileSizeTooLarge, ErrFileTypeInvalid, ErrFileStorageFailed,
		ErrUnknown, ErrPersistenceFailed,
	}

	for _, code := range codes {
		template, ok := errorMap[code]
		require.True(t, ok, "code %d missing from errorMap", code)
		require.Equal(t, code, template.Code)
		require.NotEmpty(t, template.Message)
	}
}
