// SPDX-License-Identifier: MIT

// Package feed decodes the upstream JSON schedule feed into typed channel and
// media records. Decoding is deliberately lenient below the channel level:
// malformed media entries survive decoding and are rejected one by one by the
// schedule mapper.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// UnknownChannelName replaces a channel name that is absent or null.
const UnknownChannelName = "Unknown Channel"

// ErrNotSequence is returned when the top-level JSON value is not an array of objects.
var ErrNotSequence = errors.New("feed: top-level value is not an array of channel objects")

// ErrFieldType is returned when a channel field has an unexpected JSON type.
var ErrFieldType = errors.New("feed: unexpected field type")

// ConversionError reports a feed whose overall shape cannot be converted.
type ConversionError struct {
	Sentinel error
	Channel  int // index of the offending channel, -1 for the top-level value
	Field    string
	Err      error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("convert feed: %v", e.Sentinel)
	if e.Channel >= 0 {
		msg = fmt.Sprintf("%s (channel %d", msg, e.Channel)
		if e.Field != "" {
			msg += ", field " + e.Field
		}
		msg += ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Sentinel
}

// Channel is one channel object of the source feed.
type Channel struct {
	Name  string
	Media []Media
}

// Media is one airing entry. Every field is optional in the source.
type Media struct {
	startDate *string
	name      *string
	info      *Info
}

// Info holds the optional descriptive block of a media entry.
type Info struct {
	fullname *string
	episode  *string
}

// NewMedia builds a media entry from already-resolved values. Empty strings
// are treated as present; use the zero Media for a fully absent entry.
func NewMedia(startDate, name string, info *Info) Media {
	return Media{startDate: &startDate, name: &name, info: info}
}

// NewInfo builds an info block. A nil pointer marks the field absent.
func NewInfo(fullname, episode *string) *Info {
	return &Info{fullname: fullname, episode: episode}
}

// StartDateText returns the raw startDate and whether it was present as a string.
func (m Media) StartDateText() (string, bool) {
	if m.startDate == nil {
		return "", false
	}
	return *m.startDate, true
}

// Title resolves the programme title: info.fullname when present, otherwise
// the media name, otherwise the empty string.
func (m Media) Title() string {
	if m.info != nil && m.info.fullname != nil {
		return *m.info.fullname
	}
	if m.name != nil {
		return *m.name
	}
	return ""
}

// Episode returns info.episode, or "" when absent.
func (m Media) Episode() string {
	if m.info == nil || m.info.episode == nil {
		return ""
	}
	return *m.info.episode
}

// Decode parses a feed document. Only shape errors at the channel level fail
// the decode; everything below is resolved through defaults.
func Decode(data []byte) ([]Channel, error) {
	data = bytes.TrimSpace(data)
	var raw []json.RawMessage
	if len(data) == 0 || data[0] != '[' {
		return nil, &ConversionError{Sentinel: ErrNotSequence, Channel: -1}
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConversionError{Sentinel: ErrNotSequence, Channel: -1, Err: err}
	}

	channels := make([]Channel, 0, len(raw))
	for i, item := range raw {
		ch, err := decodeChannel(i, item)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

type rawChannel struct {
	Name  json.RawMessage `json:"name"`
	Media json.RawMessage `json:"media"`
}

func decodeChannel(index int, data json.RawMessage) (Channel, error) {
	if !isObject(data) {
		return Channel{}, &ConversionError{Sentinel: ErrNotSequence, Channel: index}
	}
	var rc rawChannel
	if err := json.Unmarshal(data, &rc); err != nil {
		return Channel{}, &ConversionError{Sentinel: ErrNotSequence, Channel: index, Err: err}
	}

	ch := Channel{Name: UnknownChannelName}
	if !isAbsent(rc.Name) {
		var name string
		if err := json.Unmarshal(rc.Name, &name); err != nil {
			return Channel{}, &ConversionError{Sentinel: ErrFieldType, Channel: index, Field: "name", Err: err}
		}
		ch.Name = name
	}

	if isAbsent(rc.Media) {
		return ch, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rc.Media, &items); err != nil {
		return Channel{}, &ConversionError{Sentinel: ErrFieldType, Channel: index, Field: "media", Err: err}
	}
	ch.Media = make([]Media, 0, len(items))
	for _, item := range items {
		ch.Media = append(ch.Media, decodeMedia(item))
	}
	return ch, nil
}

type rawMedia struct {
	StartDate json.RawMessage `json:"startDate"`
	Name      json.RawMessage `json:"name"`
	Info      json.RawMessage `json:"info"`
}

type rawInfo struct {
	Fullname json.RawMessage `json:"fullname"`
	Episode  json.RawMessage `json:"episode"`
}

// decodeMedia never fails: a non-object entry or a mistyped field decodes to
// an absent value, and the mapper decides what an absent value means.
func decodeMedia(data json.RawMessage) Media {
	var m Media
	if !isObject(data) {
		return m
	}
	var rm rawMedia
	if err := json.Unmarshal(data, &rm); err != nil {
		return m
	}
	m.startDate = optionalString(rm.StartDate)
	m.name = optionalString(rm.Name)

	if isObject(rm.Info) {
		var ri rawInfo
		if err := json.Unmarshal(rm.Info, &ri); err == nil {
			m.info = &Info{
				fullname: optionalString(ri.Fullname),
				episode:  optionalString(ri.Episode),
			}
		}
	}
	return m
}

func optionalString(data json.RawMessage) *string {
	if isAbsent(data) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return &s
}

func isAbsent(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
