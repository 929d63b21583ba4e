// Package extract distills free-text forum posts into short search terms.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const defaultMaxWords = 4

var (
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	punctuationRe = regexp.MustCompile(`[？?！!，,。.：:；;、【】\[\]()（）「」《》“”"'‘’…~～·-]`)
	identifierRe  = regexp.MustCompile(`^[A-Z][A-Za-z0-9]+$`)
)

// Config carries the immutable rule tables for an Extractor.
type Config struct {
	NoiseWords []string
}

// Extractor turns post text into a ranked, deduplicated keyword string.
type Extractor struct {
	noise map[string]struct{}
}

// DefaultNoiseWords is the stock noise-word table: function words, filler
// verbs and generic domain words that carry no search signal.
func DefaultNoiseWords() []string {
	return []string{
		"怎么", "如何", "实现", "问题", "请问", "关于", "为什么", "我想", "可以", "帮我",
		"谢谢", "求助", "使用", "用", "layaair", "laya", "引擎", "版本", "怎样", "一个",
		"这个", "什么", "会不会", "能不能", "有没有", "是否", "不行", "了", "吗", "呢",
		"啊", "哦", "呀", "嘛", "吧", "着", "过", "给", "把", "被", "让", "叫", "使",
		"通过", "根据", "按照", "由于", "因为", "所以", "但是", "然后", "接着", "最后",
		"代码", "方法", "功能", "效果", "东西", "情况", "时候", "位置", "地方", "部分",
		"the", "a", "an", "how", "what", "why", "please", "help",
	}
}

// NewExtractor builds an Extractor from the given rule tables. An empty
// noise-word list falls back to the defaults.
func NewExtractor(cfg Config) *Extractor {
	words := cfg.NoiseWords
	if len(words) == 0 {
		words = DefaultNoiseWords()
	}
	noise := make(map[string]struct{}, len(words))
	for _, w := range words {
		noise[strings.ToLower(w)] = struct{}{}
	}
	return &Extractor{noise: noise}
}

// Extract returns up to maxWords search terms joined by single spaces.
// Markup is stripped, punctuation becomes whitespace, tokens shorter than two
// runes or present in the noise set are dropped, duplicates keep their first
// position, and Capitalized identifier tokens are ranked ahead of everything
// else. Returns "" when nothing survives filtering.
func (e *Extractor) Extract(text string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	clean := tagRe.ReplaceAllString(text, "")
	clean = punctuationRe.ReplaceAllString(clean, " ")

	var identifiers, others []string
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(clean) {
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		if _, ok := e.noise[strings.ToLower(w)]; ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if identifierRe.MatchString(w) {
			identifiers = append(identifiers, w)
		} else {
			others = append(others, w)
		}
	}

	ranked := append(identifiers, others...)
	if len(ranked) > maxWords {
		ranked = ranked[:maxWords]
	}
	return strings.Join(ranked, " ")
}
