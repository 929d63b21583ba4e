package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/layaask/answerbot/internal/answer"
	"github.com/layaask/answerbot/internal/classify"
	"github.com/layaask/answerbot/internal/extract"
	"github.com/layaask/answerbot/internal/planner"
	"github.com/layaask/answerbot/internal/publish"
	"github.com/layaask/answerbot/internal/store"
)

type fakeStore struct {
	discussion *store.Discussion
	missFirstN int
	getCalls   int
	botReplies int
	countErr   error
	getErr     error
}

func (f *fakeStore) GetDiscussion(ctx context.Context, id int64) (store.Discussion, bool, error) {
	f.getCalls++
	if f.getErr != nil {
		return store.Discussion{}, false, f.getErr
	}
	if f.discussion == nil || f.getCalls <= f.missFirstN {
		return store.Discussion{}, false, nil
	}
	return *f.discussion, true, nil
}

func (f *fakeStore) CountBotReplies(ctx context.Context, discussionID, botUserID int64) (int, error) {
	return f.botReplies, f.countErr
}

type fakeRetriever struct {
	context string
	plans   [][]planner.Entry
}

func (f *fakeRetriever) RetrieveAll(ctx context.Context, plan []planner.Entry, titleFallback string) string {
	f.plans = append(f.plans, plan)
	return f.context
}

type fakeSynthesizer struct {
	result   answer.Result
	calls    int
	category classify.Category
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, q answer.Question, knowledgeContext string, category classify.Category) answer.Result {
	f.calls++
	f.category = category
	return f.result
}

type fakePublisher struct {
	err   error
	calls int
}

func (f *fakePublisher) Publish(ctx context.Context, discussionID int64, markdown string) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return 9001, nil
}

func technicalDiscussion() *store.Discussion {
	return &store.Discussion{
		ID:       55,
		Title:    "Laya.Sprite.addChild 报错",
		Content:  "调用 addChild 的时候抛出 TypeError: Cannot read property 'x' of undefined",
		Username: "dev1",
		Tags:     []string{"2D"},
	}
}

func newTestProcessor(st *fakeStore, r *fakeRetriever, syn *fakeSynthesizer, pub *fakePublisher) *Processor {
	return New(
		st,
		classify.New(classify.DefaultRules()),
		planner.New(extract.NewExtractor(extract.Config{})),
		r,
		syn,
		pub,
		Options{BotUserID: 4, LookupRetries: 3, LookupDelay: time.Millisecond},
		nil,
	)
}

func TestProcessPublishesAnswer(t *testing.T) {
	t.Parallel()

	st := &fakeStore{discussion: technicalDiscussion()}
	r := &fakeRetriever{context: "### Sprite.addChild\nAdds a child."}
	syn := &fakeSynthesizer{result: answer.Result{Success: true, Markdown: "## 问题分析\n\n这是空引用问题。", Version: answer.Version3x}}
	pub := &fakePublisher{}

	if err := newTestProcessor(st, r, syn, pub).Process(context.Background(), 55); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if syn.calls != 1 || pub.calls != 1 {
		t.Fatalf("synthesize calls = %d, publish calls = %d, want 1 and 1", syn.calls, pub.calls)
	}
	if len(r.plans) != 1 || len(r.plans[0]) == 0 {
		t.Fatalf("expected a non-empty query plan, got %+v", r.plans)
	}
	if syn.category != classify.Technical {
		t.Fatalf("synthesizer category = %q, want %q", syn.category, classify.Technical)
	}
}

func TestProcessAnswersMultiQuestion(t *testing.T) {
	t.Parallel()

	st := &fakeStore{discussion: &store.Discussion{
		ID:       57,
		Title:    "Sprite 锚点的几个问题",
		Content:  "怎么设置Sprite的锚点? 为什么缩放后位置偏了? 如何让它响应点击?",
		Username: "dev2",
	}}
	syn := &fakeSynthesizer{result: answer.Result{Success: true, Markdown: "## 问题分析\n\n逐条回答如下。"}}
	pub := &fakePublisher{}

	if err := newTestProcessor(st, &fakeRetriever{}, syn, pub).Process(context.Background(), 57); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if syn.calls != 1 || pub.calls != 1 {
		t.Fatalf("synthesize calls = %d, publish calls = %d, want 1 and 1", syn.calls, pub.calls)
	}
	if syn.category != classify.MultiQuestion {
		t.Fatalf("synthesizer category = %q, want %q", syn.category, classify.MultiQuestion)
	}
}

func TestProcessSkipsNonTechnical(t *testing.T) {
	t.Parallel()

	st := &fakeStore{discussion: &store.Discussion{
		ID:      56,
		Title:   "招聘：急招LayaAir工程师",
		Content: "坐标上海，欢迎投递简历",
	}}
	syn := &fakeSynthesizer{}
	pub := &fakePublisher{}

	if err := newTestProcessor(st, &fakeRetriever{}, syn, pub).Process(context.Background(), 56); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if syn.calls != 0 || pub.calls != 0 {
		t.Fatalf("non-technical post should not reach synthesis or publish")
	}
}

func TestProcessSkipsAlreadyAnswered(t *testing.T) {
	t.Parallel()

	st := &fakeStore{discussion: technicalDiscussion(), botReplies: 1}
	syn := &fakeSynthesizer{}
	pub := &fakePublisher{}

	if err := newTestProcessor(st, &fakeRetriever{}, syn, pub).Process(context.Background(), 55); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if syn.calls != 0 || pub.calls != 0 {
		t.Fatalf("answered discussion should not be re-answered")
	}
}

func TestProcessRetriesLookup(t *testing.T) {
	t.Parallel()

	st := &fakeStore{discussion: technicalDiscussion(), missFirstN: 2}
	syn := &fakeSynthesizer{result: answer.Result{Success: true, Markdown: "## 问题分析\n\n足够长的回复内容。"}}
	pub := &fakePublisher{}

	if err := newTestProcessor(st, &fakeRetriever{}, syn, pub).Process(context.Background(), 55); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if st.getCalls != 3 {
		t.Fatalf("lookup attempts = %d, want 3", st.getCalls)
	}
	if pub.calls != 1 {
		t.Fatalf("publish calls = %d, want 1", pub.calls)
	}
}

func TestProcessGivesUpOnMissingDiscussion(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	syn := &fakeSynthesizer{}

	if err := newTestProcessor(st, &fakeRetriever{}, syn, &fakePublisher{}).Process(context.Background(), 404); err != nil {
		t.Fatalf("missing discussion should not error: %v", err)
	}
	if st.getCalls != 3 {
		t.Fatalf("lookup attempts = %d, want 3", st.getCalls)
	}
	if syn.calls != 0 {
		t.Fatalf("missing discussion should not reach synthesis")
	}
}

func TestProcessConcurrentAnswerIsSettled(t *testing.T) {
	t.Parallel()

	st := &fakeStore{discussion: technicalDiscussion()}
	syn := &fakeSynthesizer{result: answer.Result{Success: true, Markdown: "## 问题分析\n\n足够长的回复内容。"}}
	pub := &fakePublisher{err: publish.ErrAlreadyAnswered}

	if err := newTestProcessor(st, &fakeRetriever{}, syn, pub).Process(context.Background(), 55); err != nil {
		t.Fatalf("concurrent answer should settle the discussion: %v", err)
	}
}

func TestProcessPropagatesTransientFailures(t *testing.T) {
	t.Parallel()

	st := &fakeStore{getErr: errors.New("db down")}
	if err := newTestProcessor(st, &fakeRetriever{}, &fakeSynthesizer{}, &fakePublisher{}).Process(context.Background(), 55); err == nil {
		t.Fatal("expected error for store failure")
	}

	st = &fakeStore{discussion: technicalDiscussion()}
	pub := &fakePublisher{err: errors.New("insert failed")}
	syn := &fakeSynthesizer{result: answer.Result{Success: true, Markdown: "## 问题分析\n\n足够长的回复内容。"}}
	if err := newTestProcessor(st, &fakeRetriever{}, syn, pub).Process(context.Background(), 55); err == nil {
		t.Fatal("expected error for publish failure")
	}
}
