// Package publish renders synthesized replies to forum HTML and writes them
// through the store, exactly once per discussion.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// ErrAlreadyAnswered means the bot already replied in this discussion.
	ErrAlreadyAnswered = errors.New("discussion already answered")
	// ErrTooShort means the reply did not meet the minimum length floor.
	ErrTooShort = errors.New("answer below minimum length")
)

// Store is the persistence surface the publisher needs.
type Store interface {
	CountBotReplies(ctx context.Context, discussionID, botUserID int64) (int, error)
	InsertAnswer(ctx context.Context, discussionID, botUserID int64, html string) (int64, error)
}

// Publisher posts one reply per discussion on behalf of the bot user.
type Publisher struct {
	store     Store
	botUserID int64
	minLength int
	markdown  goldmark.Markdown
	logger    *log.Logger
}

// NewPublisher builds a Publisher. minLength guards against publishing
// degenerate replies.
func NewPublisher(store Store, botUserID int64, minLength int, logger *log.Logger) *Publisher {
	if minLength <= 0 {
		minLength = 10
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[PUBLISH] ", log.LstdFlags)
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Publisher{
		store:     store,
		botUserID: botUserID,
		minLength: minLength,
		markdown:  md,
		logger:    logger,
	}
}

// Publish renders the Markdown answer and inserts it as a forum post.
// Returns the new post id. A discussion the bot already replied in yields
// ErrAlreadyAnswered without writing anything.
func (p *Publisher) Publish(ctx context.Context, discussionID int64, markdown string) (int64, error) {
	if utf8.RuneCountInString(strings.TrimSpace(markdown)) < p.minLength {
		return 0, ErrTooShort
	}

	count, err := p.store.CountBotReplies(ctx, discussionID, p.botUserID)
	if err != nil {
		return 0, fmt.Errorf("count bot replies: %w", err)
	}
	if count > 0 {
		return 0, ErrAlreadyAnswered
	}

	rendered, err := p.render(markdown)
	if err != nil {
		return 0, fmt.Errorf("render answer: %w", err)
	}

	postID, err := p.store.InsertAnswer(ctx, discussionID, p.botUserID, rendered)
	if err != nil {
		return 0, fmt.Errorf("insert answer: %w", err)
	}
	p.logger.Printf("published post %d in discussion %d", postID, discussionID)
	return postID, nil
}

// render converts Markdown to the forum's post HTML. The forum's renderer
// expects the content wrapped in a <t> element.
func (p *Publisher) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return "<t>" + strings.TrimSpace(buf.String()) + "</t>", nil
}
