package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sharpfeed/internal/domain"
	"sharpfeed/internal/store"
)

// FeedService owns the post collection. Every mutation updates the
// in-memory copy and immediately writes the whole collection back to the
// store (write-through, single attempt).
type FeedService interface {
	CreatePost(ctx context.Context, actor, text, image string) (*domain.Post, error)
	ToggleLike(ctx context.Context, actor string, postID int64) (*domain.Post, error)
	AddComment(ctx context.Context, actor string, postID int64, text string) (*domain.Comment, error)
	EditPost(ctx context.Context, actor string, postID int64, newText string) (*domain.Post, error)
	DeletePost(ctx context.Context, actor string, postID int64) error
	Posts() []domain.Post
	Feed(filter string, mode domain.SortMode) []domain.Post
	Stats() domain.Stats
	ShareLink(postID int64) (string, error)
}

type feedService struct {
	mu        sync.RWMutex
	posts     []domain.Post
	lastID    int64
	shareBase string
	store     store.Store
	logger    *logrus.Logger
}

// NewFeedService loads and normalizes the persisted post collection.
// shareBase is the origin used to build share links.
func NewFeedService(ctx context.Context, s store.Store, shareBase string, logger *logrus.Logger) FeedService {
	posts := store.Load(ctx, s, store.KeyPosts, []domain.Post{}, logger)

	var lastID int64
	for i := range posts {
		posts[i].Normalize()
		if posts[i].ID > lastID {
			lastID = posts[i].ID
		}
		for _, c := range posts[i].Comments {
			if c.ID > lastID {
				lastID = c.ID
			}
		}
	}

	return &feedService{
		posts:     posts,
		lastID:    lastID,
		shareBase: strings.TrimRight(shareBase, "/"),
		store:     s,
		logger:    logger,
	}
}

func (s *feedService) CreatePost(ctx context.Context, actor, text, image string) (*domain.Post, error) {
	if actor == "" {
		return nil, domain.ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	image = strings.TrimSpace(image)
	if text == "" && image == "" {
		return nil, domain.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post := domain.Post{
		ID:        s.nextIDLocked(),
		Author:    actor,
		Text:      text,
		Image:     image,
		CreatedAt: time.Now(),
		LikedBy:   []string{},
		Comments:  []domain.Comment{},
	}

	// newest first in the raw collection, independent of projection order
	s.posts = append([]domain.Post{post}, s.posts...)

	if err := s.persistLocked(ctx); err != nil {
		s.posts = s.posts[1:]
		return nil, err
	}
	return clonePost(&post), nil
}

// ToggleLike flips the actor's membership in the post's like set. Calling
// it twice with the same actor restores the original state. An empty actor
// is a silent no-op; gating on authentication is the caller's job.
func (s *feedService) ToggleLike(ctx context.Context, actor string, postID int64) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post := s.findLocked(postID)
	if post == nil {
		return nil, domain.ErrNotFound
	}
	if actor == "" {
		return clonePost(post), nil
	}

	prev := post.LikedBy
	removed := false
	for i, id := range post.LikedBy {
		if id == actor {
			post.LikedBy = append(append([]string{}, post.LikedBy[:i]...), post.LikedBy[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		post.LikedBy = append(append([]string{}, post.LikedBy...), actor)
	}

	if err := s.persistLocked(ctx); err != nil {
		post.LikedBy = prev
		return nil, err
	}
	return clonePost(post), nil
}

func (s *feedService) AddComment(ctx context.Context, actor string, postID int64, text string) (*domain.Comment, error) {
	if actor == "" {
		return nil, domain.ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post := s.findLocked(postID)
	if post == nil {
		return nil, domain.ErrNotFound
	}

	comment := domain.Comment{
		ID:        s.nextIDLocked(),
		Author:    actor,
		Text:      text,
		CreatedAt: time.Now(),
	}
	post.Comments = append(post.Comments, comment)

	if err := s.persistLocked(ctx); err != nil {
		post.Comments = post.Comments[:len(post.Comments)-1]
		return nil, err
	}
	return &comment, nil
}

func (s *feedService) EditPost(ctx context.Context, actor string, postID int64, newText string) (*domain.Post, error) {
	if actor == "" {
		return nil, domain.ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post := s.findLocked(postID)
	if post == nil {
		return nil, domain.ErrNotFound
	}
	if post.Author != actor {
		return nil, domain.ErrNotAuthor
	}

	prev := post.Text
	post.Text = strings.TrimSpace(newText)

	if err := s.persistLocked(ctx); err != nil {
		post.Text = prev
		return nil, err
	}
	return clonePost(post), nil
}

// DeletePost removes the post and its comments. Confirmation prompts are a
// presentation concern; by the time this runs the decision is made.
func (s *feedService) DeletePost(ctx context.Context, actor string, postID int64) error {
	if actor == "" {
		return domain.ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.posts {
		if s.posts[i].ID == postID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotFound
	}
	if s.posts[idx].Author != actor {
		return domain.ErrNotAuthor
	}

	prev := s.posts
	remaining := make([]domain.Post, 0, len(s.posts)-1)
	remaining = append(remaining, s.posts[:idx]...)
	remaining = append(remaining, s.posts[idx+1:]...)
	s.posts = remaining

	if err := s.persistLocked(ctx); err != nil {
		s.posts = prev
		return err
	}
	return nil
}

// Posts returns a snapshot of the raw collection in storage order.
func (s *feedService) Posts() []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Post, len(s.posts))
	for i := range s.posts {
		out[i] = *clonePost(&s.posts[i])
	}
	return out
}

// Feed returns the projected view for the given filter and sort mode.
func (s *feedService) Feed(filter string, mode domain.SortMode) []domain.Post {
	return domain.Project(s.Posts(), filter, mode)
}

func (s *feedService) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ComputeStats(s.posts)
}

// ShareLink builds the canonical URL for a post. Handing it to a share
// sheet or clipboard is the caller's fire-and-forget side effect.
func (s *feedService) ShareLink(postID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.findLocked(postID) == nil {
		return "", domain.ErrNotFound
	}
	return fmt.Sprintf("%s/?post=%d", s.shareBase, postID), nil
}

// nextIDLocked derives an id from the current time, bumping past the last
// issued id so two writes within the same millisecond stay unique.
func (s *feedService) nextIDLocked() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *feedService) findLocked(postID int64) *domain.Post {
	for i := range s.posts {
		if s.posts[i].ID == postID {
			return &s.posts[i]
		}
	}
	return nil
}

func (s *feedService) persistLocked(ctx context.Context) error {
	for i := range s.posts {
		s.posts[i].Likes = s.posts[i].LikeCount()
	}
	return store.Save(ctx, s.store, store.KeyPosts, s.posts)
}

func clonePost(p *domain.Post) *domain.Post {
	out := *p
	out.LikedBy = append([]string{}, p.LikedBy...)
	out.Comments = append([]domain.Comment{}, p.Comments...)
	return &out
}
