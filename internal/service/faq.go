package service

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/epicstrade/rifas/internal/model"
)

// Supported widget languages, in matcher order. The first is the default.
var faqLanguages = []struct {
	code string
	tag  language.Tag
}{
	{"pt", language.BrazilianPortuguese},
	{"en", language.English},
	{"es", language.Spanish},
}

const maxSuggestions = 3

type indexedEntry struct {
	entry    model.FAQEntry
	keywords map[string]struct{}
	words    map[string]struct{}
}

// FAQService answers chat widget questions from a static knowledge base.
// Matching is accent and case insensitive, so "leilão" and "LEILAO" hit
// the same entry.
type FAQService struct {
	matcher language.Matcher
	index   map[string][]indexedEntry
}

// NewFAQService builds the service over entries
func NewFAQService(entries []model.FAQEntry) *FAQService {
	tags := make([]language.Tag, len(faqLanguages))
	for i, l := range faqLanguages {
		tags[i] = l.tag
	}

	s := &FAQService{
		matcher: language.NewMatcher(tags),
		index:   make(map[string][]indexedEntry),
	}
	for _, e := range entries {
		ie := indexedEntry{
			entry:    e,
			keywords: make(map[string]struct{}),
			words:    make(map[string]struct{}),
		}
		for _, k := range e.Keywords {
			for _, tok := range tokenize(k) {
				ie.keywords[tok] = struct{}{}
			}
		}
		for _, tok := range tokenize(e.Question) {
			ie.words[tok] = struct{}{}
		}
		s.index[e.Lang] = append(s.index[e.Lang], ie)
	}
	return s
}

// Language picks the widget language. An explicit lang wins over the
// Accept-Language header; anything unsupported falls back to Portuguese.
func (s *FAQService) Language(lang, acceptLanguage string) string {
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			if code, ok := s.match(t); ok {
				return code
			}
		}
	}
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
			if code, ok := s.match(tags...); ok {
				return code
			}
		}
	}
	return faqLanguages[0].code
}

func (s *FAQService) match(prefs ...language.Tag) (string, bool) {
	_, idx, conf := s.matcher.Match(prefs...)
	if conf == language.No {
		return "", false
	}
	return faqLanguages[idx].code, true
}

// List returns every entry of a language
func (s *FAQService) List(lang string) []model.FAQEntry {
	entries := s.index[lang]
	out := make([]model.FAQEntry, 0, len(entries))
	for _, ie := range entries {
		out = append(out, ie.entry)
	}
	return out
}

// Answer returns the best entry for question, or the fallback answer with
// a few suggested questions
func (s *FAQService) Answer(question, lang, acceptLanguage string) *model.FAQAnswer {
	code := s.Language(lang, acceptLanguage)
	entries := s.index[code]

	type scored struct {
		idx   int
		score int
	}
	var ranked []scored
	for i, ie := range entries {
		score := 0
		for _, tok := range tokenize(question) {
			if _, ok := ie.keywords[tok]; ok {
				score += 2
			} else if _, ok := ie.words[tok]; ok {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > 0 && ranked[0].score >= 2 {
		best := entries[ranked[0].idx].entry
		ans := &model.FAQAnswer{
			Lang:     code,
			Matched:  true,
			EntryID:  best.ID,
			Question: best.Question,
			Answer:   best.Answer,
		}
		for _, r := range ranked[1:] {
			if len(ans.Suggestions) == maxSuggestions {
				break
			}
			ans.Suggestions = append(ans.Suggestions, entries[r.idx].entry.Question)
		}
		return ans
	}

	ans := &model.FAQAnswer{Lang: code, Answer: faqFallback[code]}
	for _, ie := range entries {
		if len(ans.Suggestions) == maxSuggestions {
			break
		}
		ans.Suggestions = append(ans.Suggestions, ie.entry.Question)
	}
	return ans
}

// foldText strips diacritics and lowercases
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// tokenize splits folded text into words of three or more characters
func tokenize(s string) []string {
	fields := strings.FieldsFunc(foldText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
