// Package classify assigns incoming discussions to reply categories and
// gates technical posts through the pre-filter.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Category is the reply-policy bucket for one discussion.
type Category string

const (
	NonTechnical   Category = "non_technical"
	FeatureRequest Category = "feature_request"
	SelfResolved   Category = "self_resolved"
	Trivial        Category = "trivial"
	MultiQuestion  Category = "multi_question"
	Technical      Category = "technical"
)

// Rules holds the immutable keyword tables driving classification and the
// pre-filter. Injected at construction so the tables stay testable and
// versionable.
type Rules struct {
	JobKeywords       []string
	ChitchatKeywords  []string
	ComplaintKeywords []string
	FeatureGroups     [][]string
	ResolvedPhrases   []string
	QuestionMarkers   []string
	SpamKeywords      []string
}

// DefaultRules returns the stock rule tables.
func DefaultRules() Rules {
	return Rules{
		JobKeywords: []string{
			"招聘", "招人", "急招", "岗位", "职位", "简历", "面试", "求职", "外包",
		},
		ChitchatKeywords: []string{
			"灌水", "水贴", "闲聊", "打卡", "签到",
		},
		ComplaintKeywords: []string{
			"垃圾", "烂", "恶心", "烦死了", "无语", "坑", "bug一堆",
		},
		FeatureGroups: [][]string{
			{"希望", "支持"},
			{"建议", "增加"},
			{"能不能", "加"},
			{"求", "功能"},
			{"hope", "support"},
		},
		ResolvedPhrases: []string{
			"已解决", "已经解决", "自己解决", "解决了", "已修复", "搞定了", "solved", "fixed it",
		},
		QuestionMarkers: []string{
			"?", "？", "怎么", "如何", "为什么", "能不能", "是否", "how", "why", "what",
		},
		SpamKeywords: []string{
			"广告", "加微信", "加qq", "加群", "兼职", "代练", "代充", "低价", "优惠", "推广",
		},
	}
}

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spacesRe = regexp.MustCompile(`\s+`)
)

// Classifier evaluates the ordered predicate chain over a discussion.
type Classifier struct {
	rules Rules
}

// New builds a Classifier from the given rule tables.
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify maps (title, body) to exactly one category. The chain is ordered;
// the first matching rule wins and the default is Technical. Pure and
// deterministic: recomputed on every processing attempt, never persisted.
func (c *Classifier) Classify(title, body string) Category {
	cleanTitle := stripMarkup(title)
	cleanBody := stripMarkup(body)
	full := strings.ToLower(cleanTitle + " " + cleanBody)

	if containsAny(full, c.rules.JobKeywords) ||
		containsAny(full, c.rules.ChitchatKeywords) ||
		containsAny(full, c.rules.ComplaintKeywords) {
		return NonTechnical
	}
	for _, group := range c.rules.FeatureGroups {
		if containsAll(full, group) {
			return FeatureRequest
		}
	}
	if containsAny(full, c.rules.ResolvedPhrases) {
		return SelfResolved
	}
	if utf8.RuneCountInString(cleanTitle) < 5 && utf8.RuneCountInString(cleanBody) < 20 {
		return Trivial
	}
	if countMarkers(strings.ToLower(cleanBody), c.rules.QuestionMarkers) >= 3 {
		return MultiQuestion
	}
	return Technical
}

func stripMarkup(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func containsAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return len(keywords) > 0
}

func countMarkers(text string, markers []string) int {
	n := 0
	for _, m := range markers {
		n += strings.Count(text, m)
	}
	return n
}
