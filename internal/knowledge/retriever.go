package knowledge

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/layaask/answerbot/internal/planner"
)

const contextSeparator = "\n\n---\n\n"

// Searcher executes a single plan entry against the knowledge endpoint.
type Searcher interface {
	Search(ctx context.Context, tool planner.ToolKind, query string) (Result, error)
}

// Cache stores rendered context per plan entry. Implementations are best
// effort: a failing cache must never fail retrieval.
type Cache interface {
	Get(ctx context.Context, tool planner.ToolKind, query string) (string, bool)
	Set(ctx context.Context, tool planner.ToolKind, query, rendered string)
}

// Retriever fans a query plan out to the knowledge endpoint and merges the
// results into one grounding context.
type Retriever struct {
	searcher Searcher
	cache    Cache
	logger   *log.Logger
}

// NewRetriever builds a Retriever. cache may be nil.
func NewRetriever(searcher Searcher, cache Cache, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Retriever{searcher: searcher, cache: cache, logger: logger}
}

// RetrieveAll runs every plan entry concurrently and joins the non-empty
// results in plan order. When the whole plan comes back empty it retries
// once with a two-word title digest before giving up. An empty context is a
// valid outcome, not an error: retrieval failing entirely must not block the
// answer, only leave it ungrounded.
func (r *Retriever) RetrieveAll(ctx context.Context, plan []planner.Entry, titleFallback string) string {
	merged := r.retrieve(ctx, plan)
	if merged != "" {
		return merged
	}
	if titleFallback == "" {
		return ""
	}
	r.logger.Printf("plan returned no context, retrying with title digest %q", titleFallback)
	return r.retrieve(ctx, []planner.Entry{{Tool: planner.FuzzyAPISearch, Query: titleFallback}})
}

func (r *Retriever) retrieve(ctx context.Context, plan []planner.Entry) string {
	if len(plan) == 0 {
		return ""
	}

	parts := make([]string, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range plan {
		i, entry := i, entry
		g.Go(func() error {
			if r.cache != nil {
				if cached, ok := r.cache.Get(gctx, entry.Tool, entry.Query); ok {
					parts[i] = cached
					return nil
				}
			}
			res, err := r.searcher.Search(gctx, entry.Tool, entry.Query)
			if err != nil {
				// One failing lookup must not cancel its siblings.
				r.logger.Printf("lookup %s %q failed: %v", entry.Tool, entry.Query, err)
				return nil
			}
			if res.Success {
				parts[i] = res.Context
				if r.cache != nil {
					r.cache.Set(gctx, entry.Tool, entry.Query, res.Context)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, contextSeparator)
}
