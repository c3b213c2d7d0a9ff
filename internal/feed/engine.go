// Package feed owns posts, likes, comments and per-viewer feed assembly.
// It reads the social graph and group membership through narrow interfaces
// and never mutates either.
package feed

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yuvalovgit/Project-application-creation/internal/groups"
	"github.com/yuvalovgit/Project-application-creation/internal/logger"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

var logg = logger.New()

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrEmptyPost     = errors.New("post needs content or media")
	ErrEmptyComment  = errors.New("comment text is required")
	ErrNotAuthorized = errors.New("not authorized")
)

// GraphReader is the slice of the Account Directory the feed needs.
type GraphReader interface {
	FollowingSet(accountID string) ([]string, error)
}

// MembershipReader is the slice of the Group Membership Engine the feed
// needs. MembershipState re-validates group existence at write time, which
// closes the create-vs-delete-group race.
type MembershipReader interface {
	MembershipState(groupID, accountID string) (groups.State, error)
	GroupsWhereMember(accountID string) ([]string, error)
}

// Engine is the Feed & Post Engine.
type Engine struct {
	store      store.StoreInterface
	graph      GraphReader
	membership MembershipReader
}

func New(st store.StoreInterface, graph GraphReader, membership MembershipReader) *Engine {
	return &Engine{store: st, graph: graph, membership: membership}
}

// Media is an opaque blob-store reference attached to a post.
type Media struct {
	Image string
	Video string
}

// CreatePost writes a post, optionally scoped to a group. Group existence
// and the author's membership are checked immediately before the write, so
// a post never lands on a group deleted a moment earlier.
func (e *Engine) CreatePost(author, content string, media Media, groupID string) (models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" && media.Image == "" && media.Video == "" {
		return models.Post{}, ErrEmptyPost
	}

	if groupID != "" {
		state, err := e.membership.MembershipState(groupID, author)
		if err != nil {
			return models.Post{}, err
		}
		if !state.IsMember() {
			return models.Post{}, groups.ErrNotAMember
		}
	}

	post := models.Post{
		ID:       uuid.NewString(),
		AuthorID: author,
		GroupID:  groupID,
		Content:  content,
		Image:    media.Image,
		Video:    media.Video,
		Created:  time.Now(),
	}

	if err := e.store.AddPost(post); err != nil {
		return models.Post{}, err
	}

	logg.Info("feed", "Post created (post content anonymized)")
	return post, nil
}

// AssembleFeed returns posts visible to the viewer, newest first. A post is
// visible when its author is the viewer or someone the viewer follows, or
// when it is scoped to a group the viewer belongs to. Both arms are merged
// and de-duplicated so a post matching both appears exactly once.
func (e *Engine) AssembleFeed(viewer string, limit int) ([]models.Post, error) {
	following, err := e.graph.FollowingSet(viewer)
	if err != nil {
		return nil, err
	}
	authors := append([]string{viewer}, following...)

	memberGroups, err := e.membership.GroupsWhereMember(viewer)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []models.Post

	for _, author := range authors {
		posts, err := e.store.PostsByAuthor(author)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}

	for _, groupID := range memberGroups {
		posts, err := e.store.PostsByGroup(groupID)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}

	sortByTimeDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ToggleLike flips the account's like on a post and reports whether the
// post is now liked. The conditional set writes keep a double toggle from
// losing updates under concurrency.
func (e *Engine) ToggleLike(postID, accountID string) (bool, error) {
	if _, ok, err := e.store.GetPost(postID); err != nil {
		return false, err
	} else if !ok {
		return false, ErrPostNotFound
	}

	applied, err := e.store.AddLike(postID, accountID)
	if err != nil {
		return false, err
	}
	if applied {
		return true, nil
	}

	if _, err := e.store.RemoveLike(postID, accountID); err != nil {
		return false, err
	}
	return false, nil
}

// AddComment appends a comment with a server-assigned timestamp.
func (e *Engine) AddComment(postID, author, text string) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, ErrEmptyComment
	}

	if _, ok, err := e.store.GetPost(postID); err != nil {
		return models.Comment{}, err
	} else if !ok {
		return models.Comment{}, ErrPostNotFound
	}

	c := models.Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		AuthorID: author,
		Text:     text,
		Created:  time.Now(),
	}

	if err := e.store.AddComment(c); err != nil {
		return models.Comment{}, err
	}

	logg.Info("feed", "Comment added (comment text anonymized)")
	return c, nil
}

// DeletePost removes a post with its comments and likes. Allowed for the
// author, or for the group's admin when the post is group-scoped.
func (e *Engine) DeletePost(postID, requester string) (models.Post, error) {
	post, ok, err := e.store.GetPost(postID)
	if err != nil {
		return models.Post{}, err
	}
	if !ok {
		return models.Post{}, ErrPostNotFound
	}

	allowed := post.AuthorID == requester
	if !allowed && post.GroupID != "" {
		state, err := e.membership.MembershipState(post.GroupID, requester)
		if err != nil && !errors.Is(err, groups.ErrGroupNotFound) {
			return models.Post{}, err
		}
		allowed = state == groups.Admin
	}
	if !allowed {
		return models.Post{}, ErrNotAuthorized
	}

	if err := e.store.DeletePost(post); err != nil {
		return models.Post{}, err
	}

	logg.Info("feed", "Post deleted (post ID anonymized)")
	return post, nil
}

// --- Reads ---

func (e *Engine) GetPost(postID string) (models.Post, error) {
	post, ok, err := e.store.GetPost(postID)
	if err != nil {
		return models.Post{}, err
	}
	if !ok {
		return models.Post{}, ErrPostNotFound
	}
	return post, nil
}

func (e *Engine) PostsForGroup(groupID string) ([]models.Post, error) {
	posts, err := e.store.PostsByGroup(groupID)
	if err != nil {
		return nil, err
	}
	sortByTimeDesc(posts)
	return posts, nil
}

func (e *Engine) PostsForAuthor(accountID string) ([]models.Post, error) {
	posts, err := e.store.PostsByAuthor(accountID)
	if err != nil {
		return nil, err
	}
	sortByTimeDesc(posts)
	return posts, nil
}

func (e *Engine) Likes(postID string) ([]string, error) {
	if _, err := e.GetPost(postID); err != nil {
		return nil, err
	}
	return e.store.Likes(postID)
}

func (e *Engine) Comments(postID string) ([]models.Comment, error) {
	if _, err := e.GetPost(postID); err != nil {
		return nil, err
	}
	return e.store.Comments(postID)
}

// sortByTimeDesc orders newest first, breaking ties on ID for stability.
func sortByTimeDesc(posts []models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Created.Equal(posts[j].Created) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].Created.After(posts[j].Created)
	})
}
