package publish

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeStore struct {
	botReplies int
	countErr   error
	insertErr  error

	insertedHTML string
	insertCalls  int
}

func (f *fakeStore) CountBotReplies(ctx context.Context, discussionID, botUserID int64) (int, error) {
	return f.botReplies, f.countErr
}

func (f *fakeStore) InsertAnswer(ctx context.Context, discussionID, botUserID int64, html string) (int64, error) {
	f.insertCalls++
	f.insertedHTML = html
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return 9001, nil
}

func TestPublishRendersAndWraps(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	p := NewPublisher(st, 4, 10, nil)

	postID, err := p.Publish(context.Background(), 55, "## 问题分析\n\n这是 **addChild** 的用法问题。")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if postID != 9001 {
		t.Fatalf("post id = %d, want 9001", postID)
	}
	if !strings.HasPrefix(st.insertedHTML, "<t>") || !strings.HasSuffix(st.insertedHTML, "</t>") {
		t.Fatalf("html not wrapped: %q", st.insertedHTML)
	}
	if !strings.Contains(st.insertedHTML, "<h2>问题分析</h2>") {
		t.Fatalf("heading not rendered: %q", st.insertedHTML)
	}
	if !strings.Contains(st.insertedHTML, "<strong>addChild</strong>") {
		t.Fatalf("emphasis not rendered: %q", st.insertedHTML)
	}
}

func TestPublishSkipsAnsweredDiscussion(t *testing.T) {
	t.Parallel()

	st := &fakeStore{botReplies: 1}
	p := NewPublisher(st, 4, 10, nil)

	_, err := p.Publish(context.Background(), 55, "这是一条足够长的正常回复内容")
	if !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("err = %v, want ErrAlreadyAnswered", err)
	}
	if st.insertCalls != 0 {
		t.Fatalf("insert called %d times, want 0", st.insertCalls)
	}
}

func TestPublishRejectsShortAnswer(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	p := NewPublisher(st, 4, 10, nil)

	_, err := p.Publish(context.Background(), 55, "  好的  ")
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
	if st.insertCalls != 0 {
		t.Fatalf("insert called %d times, want 0", st.insertCalls)
	}
}

func TestPublishPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	st := &fakeStore{countErr: errors.New("db down")}
	p := NewPublisher(st, 4, 10, nil)
	if _, err := p.Publish(context.Background(), 55, "这是一条足够长的正常回复内容"); err == nil {
		t.Fatal("expected error from count failure")
	}

	st = &fakeStore{insertErr: errors.New("constraint violation")}
	p = NewPublisher(st, 4, 10, nil)
	if _, err := p.Publish(context.Background(), 55, "这是一条足够长的正常回复内容"); err == nil {
		t.Fatal("expected error from insert failure")
	}
}

func TestPublishCodeBlock(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	p := NewPublisher(st, 4, 10, nil)

	md := "示例代码如下，注意加前缀：\n\n```typescript\nconst sp = new Laya.Sprite();\n```\n"
	if _, err := p.Publish(context.Background(), 55, md); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.Contains(st.insertedHTML, "<pre><code") {
		t.Fatalf("code block not rendered: %q", st.insertedHTML)
	}
	if !strings.Contains(st.insertedHTML, "new Laya.Sprite()") {
		t.Fatalf("code content missing: %q", st.insertedHTML)
	}
}
