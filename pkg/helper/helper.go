package helper

import (
	"regexp"
)

const MaxChannelNameLength = 164

var illegalChannelChar = regexp.MustCompile(`[^A-Za-z0-9_\-=@,.;]`)

// IsChannelName reports whether candidate is a usable channel name. When it
// is not, whyNot is the first offending character, or the whole name when it
// is empty or too long.
func IsChannelName(candidate string) (bool, string) {
	if candidate == "" || len(candidate) > MaxChannelNameLength {
		return false, candidate
	}
	whyNot := illegalChannelChar.FindString(candidate)
	return whyNot == "", whyNot
}
