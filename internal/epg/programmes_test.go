// SPDX-License-Identifier: MIT
package epg

import (
	"errors"
	"testing"

	"github.com/ManuGH/json2xmltv/internal/feed"
)

func strPtr(s string) *string { return &s }

func media(start, name string) feed.Media { return feed.NewMedia(start, name, nil) }

func TestMapChannel_ChainsStops(t *testing.T) {
	c := NewConverter(DefaultOptions())
	ch := feed.Channel{Name: "Chain", Media: []feed.Media{
		media("2024-01-01T10:00:00Z", "A"),
		media("2024-01-01T10:45:00.000Z", "B"),
		media("2024-01-01T12:00:00Z", "C"),
	}}

	channel, programmes, skips := c.MapChannel(ch)

	if channel.ID != "Chain.us" || channel.DisplayName != "Chain" {
		t.Fatalf("unexpected channel %+v", channel)
	}
	if len(skips) != 0 {
		t.Fatalf("expected no skips, got %v", skips)
	}
	if len(programmes) != 3 {
		t.Fatalf("expected 3 programmes, got %d", len(programmes))
	}
	if programmes[0].Stop != programmes[1].Start {
		t.Errorf("stop of A %q != start of B %q", programmes[0].Stop, programmes[1].Start)
	}
	if programmes[1].Stop != programmes[2].Start {
		t.Errorf("stop of B %q != start of C %q", programmes[1].Stop, programmes[2].Start)
	}
	if programmes[2].Stop != "20240101123000 +0000" {
		t.Errorf("last programme must get default duration, stop = %q", programmes[2].Stop)
	}
	for i, p := range programmes {
		if p.Channel != "Chain.us" {
			t.Errorf("programme %d bound to %q", i, p.Channel)
		}
	}
}

func TestMapChannel_SingleUnparsableStart(t *testing.T) {
	c := NewConverter(DefaultOptions())
	_, programmes, skips := c.MapChannel(feed.Channel{Name: "X", Media: []feed.Media{media("not a date", "A")}})

	if len(programmes) != 0 {
		t.Fatalf("expected 0 programmes, got %d", len(programmes))
	}
	if len(skips) != 1 || skips[0].Reason != SkipStartUnparsable {
		t.Fatalf("expected one start_unparsable skip, got %v", skips)
	}
	if !errors.Is(skips[0].Err, ErrUnparsableTimestamp) {
		t.Errorf("skip error should wrap ErrUnparsableTimestamp, got %v", skips[0].Err)
	}
}

func TestMapChannel_BrokenSuccessorSkipsPredecessor(t *testing.T) {
	c := NewConverter(DefaultOptions())
	_, programmes, skips := c.MapChannel(feed.Channel{Name: "X", Media: []feed.Media{
		media("2024-01-01T00:00:00Z", "A"),
		media("garbage", "B"),
	}})

	if len(programmes) != 0 {
		t.Fatalf("expected 0 programmes, got %+v", programmes)
	}
	if len(skips) != 2 {
		t.Fatalf("expected 2 skips, got %v", skips)
	}
	if skips[0].Index != 0 || skips[0].Reason != SkipStopUnresolvable {
		t.Errorf("unexpected first skip %v", skips[0])
	}
	if skips[1].Index != 1 || skips[1].Reason != SkipStartUnparsable {
		t.Errorf("unexpected second skip %v", skips[1])
	}
}

func TestMapChannel_BrokenFirstEntryDoesNotAbortChannel(t *testing.T) {
	c := NewConverter(DefaultOptions())
	_, programmes, skips := c.MapChannel(feed.Channel{Name: "X", Media: []feed.Media{
		media("bad", "A"),
		media("2024-01-01T01:00:00Z", "B"),
		media("2024-01-01T02:00:00Z", "C"),
	}})

	if len(programmes) != 2 {
		t.Fatalf("expected 2 programmes, got %d", len(programmes))
	}
	if programmes[0].Title.Value != "B" || programmes[1].Title.Value != "C" {
		t.Errorf("unexpected titles %q, %q", programmes[0].Title.Value, programmes[1].Title.Value)
	}
	if len(skips) != 1 || skips[0].Index != 0 {
		t.Errorf("unexpected skips %v", skips)
	}
}

func TestMapChannel_MissingStartDate(t *testing.T) {
	c := NewConverter(DefaultOptions())
	_, programmes, skips := c.MapChannel(feed.Channel{Name: "X", Media: []feed.Media{
		media("2024-01-01T00:00:00Z", "A"),
		{},
	}})

	if len(programmes) != 0 {
		t.Fatalf("expected 0 programmes, got %d", len(programmes))
	}
	if skips[0].Reason != SkipStopUnresolvable || !errors.Is(skips[0].Err, ErrStartMissing) {
		t.Errorf("unexpected first skip %v", skips[0])
	}
	if skips[1].Reason != SkipStartMissing {
		t.Errorf("unexpected second skip %v", skips[1])
	}
}

func TestMapChannel_TitleAndSubtitle(t *testing.T) {
	c := NewConverter(DefaultOptions())
	ch := feed.Channel{Name: "T", Media: []feed.Media{
		feed.NewMedia("2024-01-01T00:00:00Z", "short", feed.NewInfo(strPtr("Full Name"), strPtr("Episode 1"))),
		feed.NewMedia("2024-01-01T01:00:00Z", "fallback", feed.NewInfo(nil, strPtr(""))),
		feed.NewMedia("2024-01-01T02:00:00Z", "plain", nil),
	}}

	_, programmes, _ := c.MapChannel(ch)
	if len(programmes) != 3 {
		t.Fatalf("expected 3 programmes, got %d", len(programmes))
	}

	if programmes[0].Title.Value != "Full Name" {
		t.Errorf("fullname should win, got %q", programmes[0].Title.Value)
	}
	if programmes[0].SubTitle == nil || programmes[0].SubTitle.Value != "Episode 1" {
		t.Errorf("expected sub-title Episode 1, got %+v", programmes[0].SubTitle)
	}
	if programmes[1].Title.Value != "fallback" {
		t.Errorf("name should be used without fullname, got %q", programmes[1].Title.Value)
	}
	if programmes[1].SubTitle != nil {
		t.Errorf("empty episode must not produce a sub-title")
	}
	if programmes[2].SubTitle != nil {
		t.Errorf("missing info must not produce a sub-title")
	}
}

func TestMapChannel_NonMonotonicKeepsOrder(t *testing.T) {
	c := NewConverter(DefaultOptions())
	_, programmes, skips := c.MapChannel(feed.Channel{Name: "N", Media: []feed.Media{
		media("2024-01-01T12:00:00Z", "late"),
		media("2024-01-01T08:00:00Z", "early"),
	}})

	if len(skips) != 0 || len(programmes) != 2 {
		t.Fatalf("expected 2 programmes and no skips, got %d / %v", len(programmes), skips)
	}
	if programmes[0].Title.Value != "late" {
		t.Errorf("programmes must keep source order")
	}
	if programmes[0].Stop != "20240101080000 +0000" || programmes[0].Start != "20240101120000 +0000" {
		t.Errorf("negative duration must be emitted as-is, got %s -> %s", programmes[0].Start, programmes[0].Stop)
	}
}

func TestMapChannel_EmptyMedia(t *testing.T) {
	c := NewConverter(DefaultOptions())
	channel, programmes, skips := c.MapChannel(feed.Channel{Name: feed.UnknownChannelName})
	if channel.ID != "UnknownChannel.us" {
		t.Errorf("unexpected id %q", channel.ID)
	}
	if len(programmes) != 0 || len(skips) != 0 {
		t.Errorf("expected nothing, got %d programmes / %d skips", len(programmes), len(skips))
	}
}

func TestMapChannel_CustomDuration(t *testing.T) {
	c := NewConverter(Options{DefaultDuration: DefaultProgrammeDuration * 4})
	_, programmes, _ := c.MapChannel(feed.Channel{Name: "D", Media: []feed.Media{media("2024-01-01T00:00:00Z", "A")}})
	if programmes[0].Stop != "20240101020000 +0000" {
		t.Errorf("unexpected stop %q", programmes[0].Stop)
	}
}
