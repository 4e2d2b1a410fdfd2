/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is primarily used to generate short Base62 encoded meeting join codes.
*/
package randx

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// MeetingCodeLength is the fixed length of a generated meeting join code.
	MeetingCodeLength = 9

	// meetingCodeGroup is the number of characters between dashes in a formatted code.
	meetingCodeGroup = 3
)

// base62String returns a cryptographically random Base62 string of length n.
func base62String(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)

	max := big.NewInt(Base62Len)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(Base62Chars[idx.Int64()])
	}

	return sb.String(), nil
}

// MeetingCode generates a meeting join code formatted as three dash-separated
// groups (e.g. "a1B-9kQ-x0Z"), comparable to the join codes of common meeting products.
func MeetingCode() (string, error) {
	raw, err := base62String(MeetingCodeLength)
	if err != nil {
		return "", err
	}

	groups := make([]string, 0, MeetingCodeLength/meetingCodeGroup)
	for i := 0; i < len(raw); i += meetingCodeGroup {
		groups = append(groups, raw[i:i+meetingCodeGroup])
	}

	return strings.Join(groups, "-"), nil
}
