// Package planner turns a discussion into an ordered list of knowledge-base
// queries. Higher-priority entries are inserted first; duplicates are dropped
// by exact query string; the final plan never exceeds maxPlanEntries.
package planner

import (
	"regexp"
	"strings"

	"github.com/layaask/answerbot/internal/extract"
)

// ToolKind selects which knowledge-endpoint lookup a plan entry routes to.
type ToolKind string

const (
	// ExactLookup is a precise by-name symbol lookup.
	ExactLookup ToolKind = "exact_lookup"
	// FuzzyAPISearch is a fuzzy search over the API reference.
	FuzzyAPISearch ToolKind = "fuzzy_api"
	// FuzzyDocSearch is a fuzzy search over guides and tutorials.
	FuzzyDocSearch ToolKind = "fuzzy_docs"
)

// Entry is one planned knowledge-base query.
type Entry struct {
	Tool  ToolKind
	Query string
}

const (
	maxPlanEntries  = 5
	maxErrorSnippet = 60
	titleKeywords   = 4
	bodyKeywords    = 4
)

var (
	nsMethodRe = regexp.MustCompile(`Laya\.([A-Z]\w*\.[a-z]\w*)`)
	nsClassRe  = regexp.MustCompile(`Laya\.([A-Z]\w*)`)
	bareNameRe = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]{2,}\b`)
	errorRe    = regexp.MustCompile(`(?i)(TypeError|ReferenceError|SyntaxError|RangeError|Cannot\s+\w+|undefined is not|未定义|不是一个函数)[^\n]{0,60}`)
)

// Planner builds query plans from discussion title and body.
type Planner struct {
	extractor *extract.Extractor
	backfills []BackfillRule
	stoplist  map[string]struct{}
}

// New builds a Planner with the default backfill and stoplist tables.
func New(ex *extract.Extractor) *Planner {
	return NewWithRules(ex, DefaultBackfillRules(), DefaultIdentifierStoplist())
}

// NewWithRules builds a Planner with injected rule tables.
func NewWithRules(ex *extract.Extractor, backfills []BackfillRule, stoplist []string) *Planner {
	stop := make(map[string]struct{}, len(stoplist))
	for _, s := range stoplist {
		stop[s] = struct{}{}
	}
	return &Planner{extractor: ex, backfills: backfills, stoplist: stop}
}

// Plan returns the ordered, deduplicated query plan for one discussion.
// The result is deterministic for fixed inputs.
func (p *Planner) Plan(title, body string) []Entry {
	text := title + " " + body
	lower := strings.ToLower(text)

	var plan []Entry
	seen := make(map[string]struct{})
	add := func(tool ToolKind, query string) {
		q := strings.TrimSpace(query)
		if q == "" {
			return
		}
		if _, dup := seen[q]; dup {
			return
		}
		seen[q] = struct{}{}
		plan = append(plan, Entry{Tool: tool, Query: q})
	}
	// covered reports whether an exact lookup for this symbol (or one of its
	// methods) is already queued.
	covered := func(name string) bool {
		for _, e := range plan {
			if e.Tool != ExactLookup {
				continue
			}
			if e.Query == name || strings.HasPrefix(e.Query, name+".") {
				return true
			}
		}
		return false
	}

	// 1. Laya.Class.method — the most precise signal.
	for i, m := range nsMethodRe.FindAllStringSubmatch(text, -1) {
		if i == 3 {
			break
		}
		add(ExactLookup, m[1])
	}

	// 2. Laya.Class, unless one of its methods is already queued.
	for i, m := range nsClassRe.FindAllStringSubmatch(text, -1) {
		if i == 3 {
			break
		}
		if !covered(m[1]) {
			add(ExactLookup, m[1])
		}
	}

	// 3. Bare capitalized identifiers that look like engine classes.
	matched := 0
	for _, name := range bareNameRe.FindAllString(text, -1) {
		if matched == 3 {
			break
		}
		if _, excluded := p.stoplist[name]; excluded {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if covered(name) {
			continue
		}
		add(ExactLookup, name)
		matched++
	}

	// 4. First error signature, truncated.
	if m := errorRe.FindString(text); m != "" {
		add(FuzzyAPISearch, truncateRunes(strings.TrimSpace(m), maxErrorSnippet))
	}

	// 5. Topic-keyword backfills.
	for _, rule := range p.backfills {
		for _, trigger := range rule.Triggers {
			if strings.Contains(lower, trigger) {
				for _, sym := range rule.Symbols {
					add(ExactLookup, sym)
				}
				break
			}
		}
	}

	// 6. Title keywords.
	if kw := p.extractor.Extract(title, titleKeywords); kw != "" {
		add(FuzzyDocSearch, kw)
	}

	// 7. Body keywords, only when the plan is still thin.
	if len(plan) < 2 {
		if kw := p.extractor.Extract(body, bodyKeywords); kw != "" {
			add(FuzzyAPISearch, kw)
		}
	}

	if len(plan) > maxPlanEntries {
		plan = plan[:maxPlanEntries]
	}
	return plan
}

// TitleFallback returns the simplified two-word retry query for a title.
func (p *Planner) TitleFallback(title string) string {
	return p.extractor.Extract(title, 2)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
