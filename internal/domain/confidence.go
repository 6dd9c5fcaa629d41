package domain

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultConfidenceWindow is how many recent genuine records a help request is
// checked against.
const DefaultConfidenceWindow = 50

// Confidence grades how well a help request is corroborated by recent posts.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// ScoreRequest carries the help-request fields the scorer reads.
type ScoreRequest struct {
	Location      string
	EmergencyType string
	OtherDetails  string
}

// ScoreResult is the outcome of one scoring run. Degraded is set when the
// recent window could not be fetched and the score fell back to Low.
type ScoreResult struct {
	Confidence Confidence
	WindowSize int
	Degraded   bool
}

// RecentRecordSource returns the newest records flagged as genuine disasters,
// newest first.
type RecentRecordSource interface {
	RecentGenuine(ctx context.Context, limit int) ([]RawRecord, error)
}

// Scorer cross-references help requests against recent classified posts.
type Scorer struct {
	source     RecentRecordSource
	gazetteer  Gazetteer
	normalizer *Normalizer
	window     int
	logger     *slog.Logger
}

// NewScorer creates a Scorer. A non-positive window selects
// DefaultConfidenceWindow.
func NewScorer(source RecentRecordSource, gazetteer Gazetteer, normalizer *Normalizer, window int, logger *slog.Logger) *Scorer {
	if window <= 0 {
		window = DefaultConfidenceWindow
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &Scorer{
		source:     source,
		gazetteer:  gazetteer,
		normalizer: normalizer,
		window:     window,
		logger:     logger,
	}
}

// Score grades req. It never fails: a fetch error yields a degraded Low.
func (s *Scorer) Score(ctx context.Context, req ScoreRequest) ScoreResult {
	raws, err := s.source.RecentGenuine(ctx, s.window)
	if err != nil {
		s.logger.Warn("confidence window fetch failed, scoring low",
			"location", req.Location,
			"emergency_type", req.EmergencyType,
			"error", err,
		)
		return ScoreResult{Confidence: ConfidenceLow, Degraded: true}
	}

	window := make([]NormalizedRecord, 0, len(raws))
	for _, rec := range s.normalizer.NormalizeAll(raws) {
		if rec.Genuine != GenuineFalse {
			window = append(window, rec)
		}
	}

	keywords := s.gazetteer.ExpandLocation(req.Location)
	disaster := DisasterKeywords(req.EmergencyType, req.OtherDetails)
	return ScoreResult{
		Confidence: MatchWindow(keywords, disaster, window),
		WindowSize: len(window),
	}
}

// LocationKeywords is the expansion of a free-text location.
type LocationKeywords struct {
	// All holds every token plus the equivalent forms of recognised states
	// and countries.
	All []string
	// Priority holds the state forms only.
	Priority []string
	// PriorityActive is set when the text also names the United States.
	PriorityActive bool
}

// ExpandLocation tokenizes text on commas and whitespace, drops one-character
// tokens, and adds both forms of every recognised state (abbreviation and full
// name) and every name variant of every recognised country.
//
// Names are recognised as whole words anywhere. Two-letter codes collide with
// English words ("in", "or", "us"), so a code only counts when it is a
// comma-separated segment of its own or is written in upper case.
func (g Gazetteer) ExpandLocation(text string) LocationKeywords {
	phrase := wordText(text)
	all := make(map[string]struct{})
	priority := make(map[string]struct{})

	for _, tok := range tokenize(text) {
		all[tok] = struct{}{}
	}
	for abbr, name := range g.States {
		if mentionsCode(text, abbr) || containsTerm(phrase, name) {
			addTerms(all, abbr, name)
			addTerms(priority, abbr, name)
		}
	}
	for _, c := range g.Countries {
		matched := mentionsCode(text, c.Code)
		for _, name := range c.Names {
			matched = matched || mentionsPlace(text, phrase, name)
		}
		if matched {
			addTerms(all, c.Code)
			addTerms(all, c.Names...)
		}
	}

	active := false
	for _, ref := range g.USReferences {
		if mentionsPlace(text, phrase, ref) {
			active = true
			break
		}
	}

	return LocationKeywords{
		All:            sortedTerms(all),
		Priority:       sortedTerms(priority),
		PriorityActive: active,
	}
}

// DisasterKeywords returns the terms a post must contain to corroborate a
// request. For "other" the details text is tokenized (tokens longer than two
// characters); otherwise the selected type is the only keyword.
func DisasterKeywords(emergencyType, otherDetails string) []string {
	t := strings.ToLower(strings.TrimSpace(emergencyType))
	if t != "other" {
		if t == "" {
			return nil
		}
		return []string{t}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.Fields(wordText(otherDetails)) {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// MatchWindow classifies the strongest match in window:
//
//	High    some record matches a priority state keyword and a disaster keyword
//	High    some record matches a location keyword and a disaster keyword
//	Medium  some record matches either kind
//	Low     nothing matches, or the window is empty
//
// Location keywords match whole words of the record's location or body.
// Disaster keywords match substrings of the body or type, so "flood" matches
// "flooding".
func MatchWindow(loc LocationKeywords, disaster []string, window []NormalizedRecord) Confidence {
	full, partial := false, false
	for _, rec := range window {
		place := wordText(rec.Location)
		body := wordText(rec.Text)

		locationMatch := matchesAnyTerm(loc.All, place) || matchesAnyTerm(loc.All, body)
		stateMatch := loc.PriorityActive &&
			(matchesAnyTerm(loc.Priority, place) || matchesAnyTerm(loc.Priority, body))
		disasterMatch := containsAnySubstring(disaster, strings.ToLower(rec.Text)) ||
			containsAnySubstring(disaster, rec.RawType) ||
			containsAnySubstring(disaster, string(rec.Type))

		if stateMatch && disasterMatch {
			return ConfidenceHigh
		}
		if locationMatch && disasterMatch {
			full = true
		}
		if locationMatch || disasterMatch {
			partial = true
		}
	}

	switch {
	case full:
		return ConfidenceHigh
	case partial:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// tokenize splits on commas and whitespace, lower-cases, strips surrounding
// punctuation and dots ("U.S." -> "us"), and drops tokens of one character.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, ".", "")
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// wordText lower-cases s, removes dots, replaces other non-alphanumerics with
// spaces and pads the result with single spaces, so whole-word lookups are a
// substring search for " term ".
func wordText(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), ".", "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return " " + strings.Join(strings.Fields(s), " ") + " "
}

func containsTerm(padded, term string) bool {
	t := strings.TrimSpace(wordText(term))
	if t == "" {
		return false
	}
	return strings.Contains(padded, " "+t+" ")
}

// mentionsCode reports whether the short code appears in text as its own
// comma-separated segment ("Austin, tx") or as an upper-case word ("Portland OR",
// "U.S.").
func mentionsCode(text, code string) bool {
	if code == "" {
		return false
	}
	for _, seg := range strings.Split(text, ",") {
		if strings.TrimSpace(wordText(seg)) == code {
			return true
		}
	}
	upper := strings.ToUpper(code)
	for _, f := range strings.Fields(strings.ReplaceAll(text, ".", "")) {
		if strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) == upper {
			return true
		}
	}
	return false
}

// mentionsPlace applies the code rule to terms of two characters or fewer and
// whole-word matching to longer ones.
func mentionsPlace(text, phrase, term string) bool {
	if utf8.RuneCountInString(term) <= 2 {
		return mentionsCode(text, term)
	}
	return containsTerm(phrase, term)
}

func matchesAnyTerm(terms []string, padded string) bool {
	for _, t := range terms {
		if containsTerm(padded, t) {
			return true
		}
	}
	return false
}

func containsAnySubstring(keywords []string, s string) bool {
	if s == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func addTerms(set map[string]struct{}, terms ...string) {
	for _, t := range terms {
		set[t] = struct{}{}
	}
}

func sortedTerms(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
