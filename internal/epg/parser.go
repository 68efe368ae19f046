// SPDX-License-Identifier: MIT

package epg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrUnparsableTimestamp matches every *ParseError.
var ErrUnparsableTimestamp = errors.New("epg: unparsable timestamp")

// ParseError reports a timestamp that matched none of the accepted formats.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("epg: unparsable timestamp %q", e.Input)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrUnparsableTimestamp
}

// timestampFormat is one entry of the ordered fallback chain.
type timestampFormat struct {
	name     string
	shape    *regexp.Regexp
	rewriteZ bool
	layout   func(s string) string
}

var timestampFormats = []timestampFormat{
	{
		name:     "fractional-offset",
		shape:    regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{1,9}[+-]\d{2}:?\d{2}$`),
		rewriteZ: true,
		layout:   offsetLayout("2006-01-02T15:04:05.999999999"),
	},
	{
		name:     "seconds-offset",
		shape:    regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]\d{2}:?\d{2}$`),
		rewriteZ: true,
		layout:   offsetLayout("2006-01-02T15:04:05"),
	},
	{
		name:   "seconds-naive",
		shape:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`),
		layout: func(string) string { return "2006-01-02T15:04:05" },
	},
}

// offsetLayout picks "-0700" or "-07:00" depending on how the input spells its offset.
func offsetLayout(prefix string) func(string) string {
	return func(s string) string {
		if len(s) >= 3 && s[len(s)-3] == ':' {
			return prefix + "-07:00"
		}
		return prefix + "-0700"
	}
}

// ParseTimestamp normalizes a feed timestamp. Formats are tried in order:
// fractional seconds with offset, whole seconds with offset, then a naive
// wall-clock time that is taken as UTC. A trailing "Z" counts as "+0000" for
// the offset formats.
func ParseTimestamp(text string) (time.Time, error) {
	for _, f := range timestampFormats {
		candidate := text
		if f.rewriteZ {
			candidate = strings.ReplaceAll(candidate, "Z", "+0000")
		}
		if !f.shape.MatchString(candidate) {
			continue
		}
		t, err := time.Parse(f.layout(candidate), candidate)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Input: text}
}

// formatXMLTVTime formats time in XMLTV format: YYYYMMDDHHMMSS +0000
func formatXMLTVTime(t time.Time) string {
	return t.UTC().Format("20060102150405 -0700")
}

// FormatXMLTVTime is the exported form of formatXMLTVTime.
func FormatXMLTVTime(t time.Time) string { return formatXMLTVTime(t) }
