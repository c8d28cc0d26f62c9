// Package cards builds Box skill cards, the fixed-schema metadata records Box
// renders as annotation panels next to a file.
package cards

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/okian/boxskill/pkg/logger"
)

// Card kinds understood by the Box preview UI.
const (
	KindKeyword    = "keyword"
	KindTimeline   = "timeline"
	KindTranscript = "transcript"
)

// MetadataTemplate is the global template skill cards are stored under.
const MetadataTemplate = "boxSkillsCards"

// DefaultSkillID identifies this skill in card envelopes.
const DefaultSkillID = "box-skill-exploration-ex"

// TimeFormat is ISO-8601 UTC with milliseconds, e.g. 2018-02-05T18:49:57.714Z.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Card is one skill card.
type Card struct {
	CreatedAt     string  `json:"created_at"`
	Type          string  `json:"type"`
	SkillCardType string  `json:"skill_card_type"`
	Skill         Ref     `json:"skill"`
	Invocation    Ref     `json:"invocation"`
	Title         Title   `json:"skill_card_title"`
	Duration      float64 `json:"duration"`
	Entries       []Entry `json:"entries"`
}

// Ref is a typed reference inside the card envelope.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Title is the card heading.
type Title struct {
	Message string `json:"message"`
}

// Entry is one bubble, row or transcript line on a card.
type Entry struct {
	Type    string      `json:"type,omitempty"`
	Text    string      `json:"text"`
	Appears []TimeRange `json:"appears,omitempty"`
}

// TimeRange marks where an entry appears in a media file, in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Utterance is one recognized speech segment with per-word timings.
type Utterance struct {
	Transcript string
	Words      []TimeRange
}

// Payload is the metadata body written under MetadataTemplate.
type Payload struct {
	Cards []Card `json:"cards"`
}

// Formatter builds cards. The zero value is not usable; call NewFormatter.
type Formatter struct {
	now     func() time.Time
	skillID string
	logger  logger.Logger
}

// NewFormatter creates a Formatter with the given options.
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{
		now:     time.Now,
		skillID: DefaultSkillID,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Nop()
	}
	return f
}

// Keyword builds a keyword card with one text bubble per item.
func (f *Formatter) Keyword(items []string, title, invocationID string, duration float64) Card {
	return f.KeywordWithTimeCodes(items, title, invocationID, duration, nil)
}

// KeywordWithTimeCodes builds a keyword card whose entries carry the time
// ranges at the same index in timeCodes. An item without a matching
// time-code row is logged and left off the card; the rest are still built.
func (f *Formatter) KeywordWithTimeCodes(items []string, title, invocationID string, duration float64, timeCodes [][]TimeRange) Card {
	card := f.envelope(KindKeyword, title, invocationID, duration)
	for i, item := range items {
		entry := Entry{Type: "text", Text: item}
		if timeCodes != nil {
			ranges, ok := f.rangesAt(timeCodes, i, len(items))
			if !ok {
				continue
			}
			entry.Appears = ranges
		}
		card.Entries = append(card.Entries, entry)
	}
	return card
}

// Timeline builds a timeline card: a list with a seek bar under each item.
func (f *Formatter) Timeline(items []string, title, invocationID string, duration float64, timeCodes [][]TimeRange) Card {
	card := f.envelope(KindTimeline, title, invocationID, duration)
	for i, item := range items {
		ranges, ok := f.rangesAt(timeCodes, i, len(items))
		if !ok {
			continue
		}
		card.Entries = append(card.Entries, Entry{Text: item, Appears: ranges})
	}
	return card
}

// Transcript builds a transcript card from speech segments. Each segment's
// final character is replaced with a full stop and the sentence is
// capitalized; it appears from its first word's start to its last word's end.
func (f *Formatter) Transcript(utterances []Utterance, title, invocationID string, duration float64) Card {
	card := f.envelope(KindTranscript, title, invocationID, duration)
	for _, u := range utterances {
		entry := Entry{Text: sentence(u.Transcript)}
		if n := len(u.Words); n > 0 {
			entry.Appears = []TimeRange{{Start: u.Words[0].Start, End: u.Words[n-1].End}}
		}
		card.Entries = append(card.Entries, entry)
	}
	return card
}

func (f *Formatter) envelope(kind, title, invocationID string, duration float64) Card {
	return Card{
		CreatedAt:     f.now().UTC().Format(TimeFormat),
		Type:          "skill_card",
		SkillCardType: kind,
		Skill:         Ref{Type: "service", ID: f.skillID},
		Invocation:    Ref{Type: "skill_invocation", ID: invocationID},
		Title:         Title{Message: title},
		Duration:      duration,
		Entries:       []Entry{},
	}
}

func (f *Formatter) rangesAt(timeCodes [][]TimeRange, i, total int) ([]TimeRange, bool) {
	if i >= len(timeCodes) {
		f.logger.Warn(context.Background(), "no time codes for card entry",
			logger.Int("index", i),
			logger.Int("items", total),
			logger.Int("time_codes", len(timeCodes)),
		)
		return nil, false
	}
	ranges := make([]TimeRange, len(timeCodes[i]))
	copy(ranges, timeCodes[i])
	return ranges, true
}

// sentence swaps the last character for a period, upper-cases the first
// character and lower-cases the rest.
func sentence(text string) string {
	if _, size := utf8.DecodeLastRuneInString(text); size > 0 {
		text = text[:len(text)-size]
	}
	text += "."
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(r)) + strings.ToLower(text[size:])
}
