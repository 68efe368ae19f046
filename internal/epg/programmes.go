// SPDX-License-Identifier: MIT
package epg

import (
	"errors"
	"fmt"

	"github.com/ManuGH/json2xmltv/internal/feed"
)

// SkipReason classifies why a media entry produced no programme.
type SkipReason string

const (
	SkipStartMissing     SkipReason = "start_missing"
	SkipStartUnparsable  SkipReason = "start_unparsable"
	SkipStopUnresolvable SkipReason = "stop_unresolvable"
)

// ErrStartMissing is attached to skips whose media entry carries no startDate string.
var ErrStartMissing = errors.New("epg: media entry has no startDate")

// Skip records one media entry that was dropped from the output.
type Skip struct {
	ChannelID string
	Index     int
	Reason    SkipReason
	Err       error
}

func (s Skip) String() string {
	return fmt.Sprintf("%s[%d]: %s: %v", s.ChannelID, s.Index, s.Reason, s.Err)
}

// entryResult is the outcome of mapping one media entry: exactly one of
// programme or skip is set.
type entryResult struct {
	programme *Programme
	skip      *Skip
}

// MapChannel converts one source channel into its channel record and the
// programmes of its media list, in source order. Entries whose start or stop
// cannot be resolved are returned as skips instead of programmes.
func (c *Converter) MapChannel(ch feed.Channel) (Channel, []Programme, []Skip) {
	channel := Channel{
		ID:          ChannelID(ch.Name, c.opts.ChannelIDSuffix),
		DisplayName: ch.Name,
	}

	programmes := make([]Programme, 0, len(ch.Media))
	var skips []Skip
	for i := range ch.Media {
		res := c.mapEntry(channel.ID, ch.Media, i)
		if res.skip != nil {
			skips = append(skips, *res.skip)
			continue
		}
		programmes = append(programmes, *res.programme)
	}
	return channel, programmes, skips
}

func (c *Converter) mapEntry(channelID string, media []feed.Media, i int) entryResult {
	skip := func(reason SkipReason, err error) entryResult {
		return entryResult{skip: &Skip{ChannelID: channelID, Index: i, Reason: reason, Err: err}}
	}

	raw, ok := media[i].StartDateText()
	if !ok {
		return skip(SkipStartMissing, ErrStartMissing)
	}
	start, err := ParseTimestamp(raw)
	if err != nil {
		return skip(SkipStartUnparsable, err)
	}

	// The stop of an entry is the start of the next one, so a broken
	// successor takes this entry down with it.
	stop := start.Add(c.opts.DefaultDuration)
	if i+1 < len(media) {
		nextRaw, ok := media[i+1].StartDateText()
		if !ok {
			return skip(SkipStopUnresolvable, ErrStartMissing)
		}
		stop, err = ParseTimestamp(nextRaw)
		if err != nil {
			return skip(SkipStopUnresolvable, err)
		}
	}

	prog := Programme{
		Start:   formatXMLTVTime(start),
		Stop:    formatXMLTVTime(stop),
		Channel: channelID,
		Title:   Title{Value: media[i].Title()},
	}
	if episode := media[i].Episode(); episode != "" {
		prog.SubTitle = &Title{Value: episode}
	}
	return entryResult{programme: &prog}
}
