// Package store persists forum data in Postgres. The schema mirrors the
// forum's own tables: discussions, posts, users, tags.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/layaask/answerbot/config"
)

// PostTypeComment is the posts.type value for regular replies.
const PostTypeComment = "comment"

type Store struct {
	DB *sql.DB
}

// Discussion is a forum thread with its opening post.
type Discussion struct {
	ID           int64
	Title        string
	Content      string
	Username     string
	UserID       int64
	CommentCount int
	Tags         []string
}

// New constructs the Store from config.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	return NewWithDSN(ctx, cfg.DSN())
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// GetDiscussion loads a discussion with its first post, author and tags.
// The second return is false when the discussion does not exist.
func (s *Store) GetDiscussion(ctx context.Context, id int64) (Discussion, bool, error) {
	var d Discussion
	var tags pq.StringArray
	err := s.DB.QueryRowContext(ctx, `
SELECT d.id, d.title, COALESCE(p.content,''), COALESCE(u.username,''), COALESCE(u.id,0),
       d.comment_count,
       COALESCE((SELECT array_agg(t.name ORDER BY t.name)
                 FROM discussion_tag dt JOIN tags t ON t.id = dt.tag_id
                 WHERE dt.discussion_id = d.id), '{}')
FROM discussions d
LEFT JOIN posts p ON p.discussion_id = d.id AND p.number = 1
LEFT JOIN users u ON u.id = d.user_id
WHERE d.id = $1
`, id).Scan(&d.ID, &d.Title, &d.Content, &d.Username, &d.UserID, &d.CommentCount, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return Discussion{}, false, nil
	}
	if err != nil {
		return Discussion{}, false, err
	}
	d.Tags = []string(tags)
	return d, true, nil
}

// CountBotReplies counts comment posts by the bot user in a discussion.
func (s *Store) CountBotReplies(ctx context.Context, discussionID, botUserID int64) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM posts
WHERE discussion_id = $1 AND user_id = $2 AND type = $3
`, discussionID, botUserID, PostTypeComment).Scan(&n)
	return n, err
}

// InsertAnswer writes the reply post and bumps the discussion and user
// counters in one transaction. The post number is assigned from the current
// maximum inside the transaction, so concurrent inserts cannot share one.
func (s *Store) InsertAnswer(ctx context.Context, discussionID, botUserID int64, html string) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var postID int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO posts (discussion_id, user_id, type, content, number, created_at)
SELECT $1, $2, $3, $4, COALESCE(MAX(number), 0) + 1, NOW()
FROM posts WHERE discussion_id = $1
RETURNING id
`, discussionID, botUserID, PostTypeComment, html).Scan(&postID)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
UPDATE discussions
SET comment_count = comment_count + 1,
    last_posted_at = NOW(),
    last_posted_user_id = $2
WHERE id = $1
`, discussionID, botUserID)
	if err != nil {
		return 0, fmt.Errorf("update discussion: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("discussion %d not found", discussionID)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE users SET comment_count = comment_count + 1 WHERE id = $1
`, botUserID); err != nil {
		return 0, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return postID, nil
}
