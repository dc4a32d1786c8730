package helper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsChannelName(t *testing.T) {
	cases := []struct {
		name   string
		ok     bool
		whyNot string
	}{
		{"presence-room_1", true, ""},
		{"private-encrypted=a@b,c.d;e", true, ""},
		{"room 1", false, " "},
		{"room#1", false, "#"},
		{"", false, ""},
	}
	for _, tc := range cases {
		ok, whyNot := IsChannelName(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.whyNot, whyNot, tc.name)
	}

	ok, _ := IsChannelName(strings.Repeat("a", MaxChannelNameLength+1))
	assert.False(t, ok)
}
