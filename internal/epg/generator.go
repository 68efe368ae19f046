// SPDX-License-Identifier: MIT
package epg

import (
	"time"

	"github.com/ManuGH/json2xmltv/internal/feed"
)

const (
	DefaultGeneratorName = "JSON to XMLTV Web Converter"
	DefaultGeneratorURL  = "https://your-domain.com"

	// DefaultProgrammeDuration is the length given to the last entry of a media list.
	DefaultProgrammeDuration = 30 * time.Minute
)

// Options configures a Converter. Zero values fall back to the defaults above.
type Options struct {
	GeneratorName   string
	GeneratorURL    string
	ChannelIDSuffix string
	DefaultDuration time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		GeneratorName:   DefaultGeneratorName,
		GeneratorURL:    DefaultGeneratorURL,
		ChannelIDSuffix: DefaultChannelIDSuffix,
		DefaultDuration: DefaultProgrammeDuration,
	}
}

// Converter turns decoded feeds into XMLTV documents. It holds only
// immutable options and is safe for concurrent use.
type Converter struct {
	opts Options
}

func NewConverter(opts Options) *Converter {
	def := DefaultOptions()
	if opts.GeneratorName == "" {
		opts.GeneratorName = def.GeneratorName
	}
	if opts.GeneratorURL == "" {
		opts.GeneratorURL = def.GeneratorURL
	}
	if opts.ChannelIDSuffix == "" {
		opts.ChannelIDSuffix = def.ChannelIDSuffix
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = def.DefaultDuration
	}
	return &Converter{opts: opts}
}

// Options returns the effective options.
func (c *Converter) Options() Options { return c.opts }

// Report summarizes one conversion.
type Report struct {
	Channels          int
	Programmes        int
	NegativeDurations int
	Skips             []Skip
}

// SkipCounts groups skips by reason.
func (r Report) SkipCounts() map[SkipReason]int {
	out := make(map[SkipReason]int, len(r.Skips))
	for _, s := range r.Skips {
		out[s.Reason]++
	}
	return out
}

// Convert assembles the XMLTV document for channels. Channels keep their input
// order and programmes stay grouped by channel. Convert never fails: broken
// records are reported in the returned Report and left out of the document.
func (c *Converter) Convert(channels []feed.Channel) (*TV, Report) {
	tv := &TV{
		GeneratorName: c.opts.GeneratorName,
		GeneratorURL:  c.opts.GeneratorURL,
		Channels:      make([]Channel, 0, len(channels)),
		Programmes:    []Programme{},
	}
	var report Report

	for _, src := range channels {
		channel, programmes, skips := c.MapChannel(src)
		tv.Channels = append(tv.Channels, channel)
		tv.Programmes = append(tv.Programmes, programmes...)
		report.Skips = append(report.Skips, skips...)
	}

	report.Channels = len(tv.Channels)
	report.Programmes = len(tv.Programmes)
	report.NegativeDurations = countNegative(tv.Programmes)
	return tv, report
}

func countNegative(programmes []Programme) int {
	n := 0
	for _, p := range programmes {
		// XMLTV timestamps are fixed-width UTC, so lexical order is time order.
		if p.Stop < p.Start {
			n++
		}
	}
	return n
}
