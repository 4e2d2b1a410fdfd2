package randx

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var meetingCodePattern = regexp.MustCompile(`^[0-9A-Za-z]{3}-[0-9A-Za-z]{3}-[0-9A-Za-z]{3}$`)

func TestMeetingCodeFormat(t *testing.T) {
	code, err := MeetingCode()
	require.NoError(t, err)
	require.Regexp(t, meetingCodePattern, code)
}

func TestMeetingCodeUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := MeetingCode()
		require.NoError(t, err)
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %q after %d draws", code, i)
		seen[code] = struct{}{}
	}
}
