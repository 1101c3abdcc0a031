package classify

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"saa-question-importer/internal/domain"
)

const (
	baseSeconds      = 60
	perOptionSeconds = 15
	maxReadSeconds   = 60.0
)

// Classifier assigns topics, tags and difficulty using a Taxonomy fixed at construction.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	tax Taxonomy
}

// New builds a Classifier from a copy of tax with every keyword case-folded.
func New(tax Taxonomy) *Classifier {
	fold := cases.Fold()
	out := Taxonomy{
		FallbackTopic:      tax.FallbackTopic,
		AdvancedLength:     tax.AdvancedLength,
		IntermediateLength: tax.IntermediateLength,
	}
	for _, c := range tax.Categories {
		out.Categories = append(out.Categories, Category{Name: c.Name, Keywords: foldAll(fold, c.Keywords)})
	}
	for _, r := range tax.ContextRules {
		out.ContextRules = append(out.ContextRules, ContextRule{
			Phrase: fold.String(r.Phrase),
			Tags:   append([]string(nil), r.Tags...),
		})
	}
	for _, g := range tax.DifficultyGroups {
		out.DifficultyGroups = append(out.DifficultyGroups, DifficultyGroup{Tier: g.Tier, Keywords: foldAll(fold, g.Keywords)})
	}
	return &Classifier{tax: out}
}

// Classify inspects stem and explanation together. The first category in taxonomy order
// with a keyword hit becomes the primary topic and the next distinct one the secondary.
func (c *Classifier) Classify(stem, explanation string) domain.Classification {
	text := cases.Fold().String(stem + " " + explanation)

	var matched []string
	tags := newTagSet()
	for _, cat := range c.tax.Categories {
		for _, kw := range cat.Keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			matched = append(matched, cat.Name)
			tags.add(kw)
		}
	}
	for _, rule := range c.tax.ContextRules {
		if strings.Contains(text, rule.Phrase) {
			tags.add(rule.Tags...)
		}
	}

	cls := domain.Classification{
		PrimaryTopic: c.tax.FallbackTopic,
		Tags:         tags.list(),
		Difficulty:   c.difficulty(text, explanation),
	}
	if len(matched) > 0 {
		cls.PrimaryTopic = matched[0]
		for _, name := range matched[1:] {
			if name != cls.PrimaryTopic {
				cls.SecondaryTopic = name
				break
			}
		}
	}
	return cls
}

// Difficulty resolves the tier for stem and explanation.
func (c *Classifier) Difficulty(stem, explanation string) domain.Difficulty {
	return c.difficulty(cases.Fold().String(stem+" "+explanation), explanation)
}

func (c *Classifier) difficulty(folded, explanation string) domain.Difficulty {
	for _, g := range c.tax.DifficultyGroups {
		for _, kw := range g.Keywords {
			if strings.Contains(folded, kw) {
				return g.Tier
			}
		}
	}
	n := utf8.RuneCountInString(explanation)
	switch {
	case n > c.tax.AdvancedLength:
		return domain.DifficultyAdvanced
	case n > c.tax.IntermediateLength:
		return domain.DifficultyIntermediate
	default:
		return domain.DifficultyBeginner
	}
}

// EstimateTime returns the expected solve time in seconds: a base, a fixed amount per
// option and one second per ten explanation characters, the latter capped at a minute.
func EstimateTime(optionCount int, explanation string) int {
	read := math.Min(float64(utf8.RuneCountInString(explanation))/10, maxReadSeconds)
	return int(math.Floor(float64(baseSeconds+perOptionSeconds*optionCount) + read + 0.5))
}

func foldAll(fold cases.Caser, in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, fold.String(s))
	}
	return out
}

// tagSet keeps the first-seen order so output is stable between runs.
type tagSet struct {
	seen  map[string]struct{}
	order []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: make(map[string]struct{})}
}

func (s *tagSet) add(tags ...string) {
	for _, t := range tags {
		if _, ok := s.seen[t]; ok {
			continue
		}
		s.seen[t] = struct{}{}
		s.order = append(s.order, t)
	}
}

func (s *tagSet) list() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
