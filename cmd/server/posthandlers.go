package server

import (
	"net/http"
	"strconv"

	"github.com/yuvalovgit/Project-application-creation/internal/feed"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

// createPostHandler creates a post, optionally scoped to a group.
// Expects JSON body: {"content": "...", "image": "...", "video": "...",
// "group_id": "..."} — image/video carry blob-store reference paths.
func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		Content string `json:"content"`
		Image   string `json:"image"`
		Video   string `json:"video"`
		GroupID string `json:"group_id"`
	}
	if !decodeJSON(w, r, &body) {
		logg.Info("http/posts", "Invalid request body from account_id="+accountID)
		return
	}

	if len(body.Content) > 1000 {
		logg.Info("http/posts", "Post content too long for account_id="+accountID)
		http.Error(w, "post content must be at most 1000 characters", http.StatusBadRequest)
		return
	}

	post, err := s.feed.CreatePost(accountID, body.Content, feed.Media{Image: body.Image, Video: body.Video}, body.GroupID)
	if err != nil {
		s.fail(w, "http/posts", err)
		return
	}

	s.publishEvent(models.Event{Kind: models.EventPostCreated, PostID: post.ID, AuthorID: post.AuthorID, GroupID: post.GroupID})
	logg.Info("http/posts", "Post created by account_id="+accountID)

	writeJSON(w, http.StatusCreated, post)
}

// getPostHandler returns a post with its likes and comments.
func (s *Server) getPostHandler(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("id")

	post, err := s.feed.GetPost(postID)
	if err != nil {
		s.fail(w, "http/posts", err)
		return
	}

	likes, err := s.feed.Likes(postID)
	if err != nil {
		s.fail(w, "http/posts", err)
		return
	}
	comments, err := s.feed.Comments(postID)
	if err != nil {
		s.fail(w, "http/posts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"post":     post,
		"likes":    likes,
		"comments": comments,
	})
}

// deletePostHandler deletes a post; allowed for the author or, when
// group-scoped, the group's admin.
func (s *Server) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	post, err := s.feed.DeletePost(r.PathValue("id"), accountID)
	if err != nil {
		s.fail(w, "http/posts", err)
		return
	}

	s.publishEvent(models.Event{Kind: models.EventPostDeleted, PostID: post.ID, AuthorID: post.AuthorID, GroupID: post.GroupID, Occurred: post.Created})
	logg.Info("http/posts", "Post deleted by account_id="+accountID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

// likePostHandler toggles the caller's like on a post.
func (s *Server) likePostHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	liked, err := s.feed.ToggleLike(r.PathValue("id"), accountID)
	if err != nil {
		s.fail(w, "http/posts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"liked": liked})
}

// addCommentHandler appends a comment to a post.
// Expects JSON body: {"text": "..."}
func (s *Server) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	comment, err := s.feed.AddComment(r.PathValue("id"), accountID, body.Text)
	if err != nil {
		s.fail(w, "http/posts", err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// getFeedHandler assembles the caller's feed.
// Query parameters: ?limit=50
func (s *Server) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		logg.Info("http/feed", "Unauthorized feed access attempt")
		return
	}

	limit := s.feedLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	posts, err := s.feed.AssembleFeed(accountID, limit)
	if err != nil {
		s.fail(w, "http/feed", err)
		return
	}

	logg.Info("http/feed", "Feed assembled for account_id="+accountID+" with limit="+strconv.Itoa(limit))
	writeJSON(w, http.StatusOK, posts)
}
