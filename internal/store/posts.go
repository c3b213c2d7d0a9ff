package store

import (
	"github.com/gocql/gocql"

	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

// --- Post operations ---

// AddPost writes the post row plus its author and group partitions in one
// logged batch so the time-ordered views never drift from the main table.
func (s *Store) AddPost(post models.Post) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO posts (post_id, author_id, group_id, content, image, video, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.GroupID, post.Content, post.Image, post.Video, post.Created)
	batch.Query(`
		INSERT INTO posts_by_author (author_id, created_at, post_id, group_id, content, image, video)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.AuthorID, post.Created, post.ID, post.GroupID, post.Content, post.Image, post.Video)
	if post.GroupID != "" {
		batch.Query(`
			INSERT INTO posts_by_group (group_id, created_at, post_id, author_id, content, image, video)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			post.GroupID, post.Created, post.ID, post.AuthorID, post.Content, post.Image, post.Video)
	}

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add post", err)
		return err
	}

	logg.Info("store", "Post added (post content anonymized)")
	return nil
}

func (s *Store) GetPost(id string) (models.Post, bool, error) {
	var p models.Post
	err := s.Session.Query(`
		SELECT post_id, author_id, group_id, content, image, video, created_at
		FROM posts WHERE post_id = ?`,
		id,
	).Scan(&p.ID, &p.AuthorID, &p.GroupID, &p.Content, &p.Image, &p.Video, &p.Created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.Post{}, false, nil
		}
		logg.Error("store", "Failed to query post", err)
		return models.Post{}, false, err
	}
	return p, true, nil
}

// DeletePost removes the post from every partition along with its likes
// and comments.
func (s *Store) DeletePost(post models.Post) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM posts WHERE post_id = ?`, post.ID)
	batch.Query(`DELETE FROM posts_by_author WHERE author_id = ? AND created_at = ? AND post_id = ?`,
		post.AuthorID, post.Created, post.ID)
	if post.GroupID != "" {
		batch.Query(`DELETE FROM posts_by_group WHERE group_id = ? AND created_at = ? AND post_id = ?`,
			post.GroupID, post.Created, post.ID)
	}
	batch.Query(`DELETE FROM post_likes WHERE post_id = ?`, post.ID)
	batch.Query(`DELETE FROM post_comments WHERE post_id = ?`, post.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete post", err)
		return err
	}

	logg.Info("store", "Post deleted (post ID anonymized)")
	return nil
}

func (s *Store) PostsByAuthor(accountID string) ([]models.Post, error) {
	return s.scanPosts(`
		SELECT post_id, author_id, group_id, content, image, video, created_at
		FROM posts_by_author WHERE author_id = ?`,
		accountID, "Failed to get posts by author")
}

func (s *Store) PostsByGroup(groupID string) ([]models.Post, error) {
	return s.scanPosts(`
		SELECT post_id, author_id, group_id, content, image, video, created_at
		FROM posts_by_group WHERE group_id = ?`,
		groupID, "Failed to get posts by group")
}

func (s *Store) scanPosts(stmt, key, errMsg string) ([]models.Post, error) {
	iter := s.Session.Query(stmt, key).Iter()

	var res []models.Post
	var p models.Post
	for iter.Scan(&p.ID, &p.AuthorID, &p.GroupID, &p.Content, &p.Image, &p.Video, &p.Created) {
		res = append(res, p)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", errMsg, err)
		return nil, err
	}
	return res, nil
}

// --- Likes ---

func (s *Store) AddLike(postID, accountID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO post_likes (post_id, account_id) VALUES (?, ?) IF NOT EXISTS`,
		postID, accountID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to add like", err)
		return false, err
	}
	return applied, nil
}

func (s *Store) RemoveLike(postID, accountID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		DELETE FROM post_likes WHERE post_id = ? AND account_id = ? IF EXISTS`,
		postID, accountID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to remove like", err)
		return false, err
	}
	return applied, nil
}

func (s *Store) Likes(postID string) ([]string, error) {
	return s.scanIDs(
		`SELECT account_id FROM post_likes WHERE post_id = ?`, postID,
		"Failed to get likes")
}

// --- Comments ---

func (s *Store) AddComment(c models.Comment) error {
	if err := s.Session.Query(`
		INSERT INTO post_comments (post_id, created_at, comment_id, author_id, text)
		VALUES (?, ?, ?, ?, ?)`,
		c.PostID, c.Created, c.ID, c.AuthorID, c.Text,
	).Exec(); err != nil {
		logg.Error("store", "Failed to add comment", err)
		return err
	}

	logg.Info("store", "Comment added (comment text anonymized)")
	return nil
}

func (s *Store) Comments(postID string) ([]models.Comment, error) {
	iter := s.Session.Query(`
		SELECT comment_id, post_id, author_id, text, created_at
		FROM post_comments WHERE post_id = ?`,
		postID,
	).Iter()

	var res []models.Comment
	var c models.Comment
	for iter.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.Created) {
		res = append(res, c)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get comments", err)
		return nil, err
	}
	return res, nil
}
