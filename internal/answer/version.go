// Package answer turns a discussion plus retrieved knowledge context into a
// publishable Markdown reply.
package answer

import (
	"regexp"
	"strings"
)

// Engine major versions recognized in posts.
const (
	Version3x        = "3.x"
	Version2x        = "2.x"
	Version3xDefault = "3.x (默认)"
)

// Signal weights. Strong markers are explicit version mentions; weak markers
// are code idioms that merely correlate with a generation.
const (
	strongWeight = 10
	v3WeakWeight = 5
	v2WeakWeight = 3
)

var v3Strong = []string{
	"layaair3", "layaair 3", "laya3", "3.x", "3.0", "3.1", "3.2", "3.3", "3.4", "ide 3", "ide3",
}

var v2Strong = []string{
	"layaair2", "layaair 2", "laya2", "2.x", "2.0", "2.13", "ldc2", "ide 2", "ide2",
}

var v3WeakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)import\s+.*?\s+from\s+["']laya`),
	regexp.MustCompile(`(?i)@regclass`),
}

var v2WeakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)laya\.init\s*\(`),
	regexp.MustCompile(`(?i)laya\.stage\.`),
	regexp.MustCompile(`(?i)laya\.display\.sprite`),
	regexp.MustCompile(`(?i)laya\.handler\.create`),
}

// DetectVersion scores version signals in the post text and returns the
// winning generation. Ties and silence fall back to 3.x, flagged as a
// default so the reply can note the assumption.
func DetectVersion(title, body string) string {
	text := strings.ToLower(title + " " + body)

	var v3Score, v2Score int
	for _, kw := range v3Strong {
		if strings.Contains(text, kw) {
			v3Score += strongWeight
		}
	}
	for _, p := range v3WeakPatterns {
		if p.MatchString(text) {
			v3Score += v3WeakWeight
		}
	}
	for _, kw := range v2Strong {
		if strings.Contains(text, kw) {
			v2Score += strongWeight
		}
	}
	for _, p := range v2WeakPatterns {
		if p.MatchString(text) {
			v2Score += v2WeakWeight
		}
	}

	switch {
	case v3Score > v2Score:
		return Version3x
	case v2Score > v3Score:
		return Version2x
	default:
		return Version3xDefault
	}
}

// docLinks returns the documentation and API entry URLs for a detected
// version. Only these fixed entries ever appear in generated links; deeper
// paths come exclusively from retrieved context.
func docLinks(version string) (doc, api string) {
	if version == Version2x {
		return "https://ldc2.layabox.com/doc/", "https://layaair2.ldc2.layabox.com/api2/"
	}
	return "https://layaair.com/3.x/doc/", "https://layaair.com/3.x/api/"
}
