// Package processor runs the per-discussion answering pipeline: load,
// classify, plan, retrieve, synthesize, publish.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/layaask/answerbot/internal/answer"
	"github.com/layaask/answerbot/internal/classify"
	"github.com/layaask/answerbot/internal/metrics"
	"github.com/layaask/answerbot/internal/planner"
	"github.com/layaask/answerbot/internal/publish"
	"github.com/layaask/answerbot/internal/store"
)

// DiscussionStore loads discussions and checks for existing bot replies.
type DiscussionStore interface {
	GetDiscussion(ctx context.Context, id int64) (store.Discussion, bool, error)
	CountBotReplies(ctx context.Context, discussionID, botUserID int64) (int, error)
}

// Retriever resolves a query plan into grounding context.
type Retriever interface {
	RetrieveAll(ctx context.Context, plan []planner.Entry, titleFallback string) string
}

// Synthesizer generates the reply Markdown.
type Synthesizer interface {
	Synthesize(ctx context.Context, q answer.Question, knowledgeContext string, category classify.Category) answer.Result
}

// Publisher writes the reply to the forum.
type Publisher interface {
	Publish(ctx context.Context, discussionID int64, markdown string) (int64, error)
}

// Options tune the processor.
type Options struct {
	BotUserID int64
	// LookupRetries and LookupDelay cover the webhook racing the forum's
	// own transaction: the discussion may not be visible yet.
	LookupRetries int
	LookupDelay   time.Duration
}

// Processor executes the answering pipeline for one discussion at a time.
type Processor struct {
	store       DiscussionStore
	classifier  *classify.Classifier
	planner     *planner.Planner
	retriever   Retriever
	synthesizer Synthesizer
	publisher   Publisher
	opts        Options
	logger      *log.Logger
}

// New builds a Processor.
func New(
	st DiscussionStore,
	classifier *classify.Classifier,
	pl *planner.Planner,
	retriever Retriever,
	synthesizer Synthesizer,
	publisher Publisher,
	opts Options,
	logger *log.Logger,
) *Processor {
	if opts.LookupRetries <= 0 {
		opts.LookupRetries = 5
	}
	if opts.LookupDelay <= 0 {
		opts.LookupDelay = time.Second
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[PROCESS] ", log.LstdFlags)
	}
	return &Processor{
		store:       st,
		classifier:  classifier,
		planner:     pl,
		retriever:   retriever,
		synthesizer: synthesizer,
		publisher:   publisher,
		opts:        opts,
		logger:      logger,
	}
}

// Process answers one discussion. A nil return means the discussion is
// settled, whether a reply was published or the post was skipped. A non-nil
// return means a transient failure: the caller may retry on a later webhook.
func (p *Processor) Process(ctx context.Context, discussionID int64) error {
	start := time.Now()
	defer func() { metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()

	d, err := p.lookupDiscussion(ctx, discussionID)
	if err != nil {
		metrics.DiscussionsProcessed.WithLabelValues(metrics.OutcomeError).Inc()
		return err
	}
	if d == nil {
		p.logger.Printf("discussion %d not found, giving up", discussionID)
		metrics.DiscussionsSkipped.WithLabelValues("not_found").Inc()
		metrics.DiscussionsProcessed.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil
	}

	p.logger.Printf("processing discussion %d %q by %s (%d comments)",
		discussionID, d.Title, d.Username, d.CommentCount)

	category := p.classifier.Classify(d.Title, d.Content)
	switch category {
	case classify.Technical:
		if skip, reason := p.classifier.ShouldSkip(d.Title, d.Content); skip {
			p.logger.Printf("discussion %d filtered (%s), skipping", discussionID, reason)
			p.skip(reason)
			return nil
		}
	case classify.MultiQuestion:
		// Answerable; the prompt instructs the model to take the questions
		// in turn.
	default:
		p.logger.Printf("discussion %d classified %s, skipping", discussionID, category)
		p.skip(string(category))
		return nil
	}

	count, err := p.store.CountBotReplies(ctx, discussionID, p.opts.BotUserID)
	if err != nil {
		metrics.DiscussionsProcessed.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("count bot replies: %w", err)
	}
	if count > 0 {
		p.logger.Printf("discussion %d already answered, skipping", discussionID)
		p.skip("already_answered")
		return nil
	}

	plan := p.planner.Plan(d.Title, d.Content)
	knowledgeCtx := p.retriever.RetrieveAll(ctx, plan, p.planner.TitleFallback(d.Title))

	res := p.synthesizer.Synthesize(ctx, answer.Question{
		Title:    d.Title,
		Body:     d.Content,
		Username: d.Username,
		Tags:     d.Tags,
	}, knowledgeCtx, category)
	if !res.Success {
		metrics.SynthesisFallbacks.Inc()
	}

	postID, err := p.publisher.Publish(ctx, discussionID, res.Markdown)
	switch {
	case errors.Is(err, publish.ErrAlreadyAnswered):
		p.logger.Printf("discussion %d answered concurrently, skipping", discussionID)
		p.skip("already_answered")
		return nil
	case errors.Is(err, publish.ErrTooShort):
		p.logger.Printf("discussion %d reply below length floor, not publishing", discussionID)
		p.skip("answer_too_short")
		return nil
	case err != nil:
		metrics.DiscussionsProcessed.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Printf("discussion %d answered with post %d (fallback=%t, version=%s)",
		discussionID, postID, !res.Success, res.Version)
	metrics.AnswersPublished.Inc()
	metrics.DiscussionsProcessed.WithLabelValues(metrics.OutcomePublished).Inc()
	return nil
}

func (p *Processor) skip(reason string) {
	metrics.DiscussionsSkipped.WithLabelValues(reason).Inc()
	metrics.DiscussionsProcessed.WithLabelValues(metrics.OutcomeSkipped).Inc()
}

// lookupDiscussion polls for the discussion to absorb the webhook/commit
// race. Returns nil without error when it never appears.
func (p *Processor) lookupDiscussion(ctx context.Context, id int64) (*store.Discussion, error) {
	for attempt := 0; attempt < p.opts.LookupRetries; attempt++ {
		d, ok, err := p.store.GetDiscussion(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get discussion: %w", err)
		}
		if ok {
			return &d, nil
		}
		select {
		case <-time.After(p.opts.LookupDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}
