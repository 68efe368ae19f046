// SPDX-License-Identifier: MIT
package epg

import (
	"strings"
	"unicode"
)

// DefaultChannelIDSuffix is appended to every generated channel id unless configured otherwise.
const DefaultChannelIDSuffix = ".us"

// ChannelID derives a channel id from a display name: every rune that is not a
// letter or number is dropped and suffix is appended. Names without any
// alphanumeric content yield the bare suffix.
func ChannelID(name, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return -1
	}, name)
	return cleaned + suffix
}
