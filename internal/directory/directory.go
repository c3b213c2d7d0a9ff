// Package directory owns account identity and the follower/following graph.
package directory

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yuvalovgit/Project-application-creation/internal/logger"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

var logg = logger.New()

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrInvalidInput       = errors.New("invalid input")
)

// Directory is the Account Directory engine.
type Directory struct {
	store store.StoreInterface
}

func New(st store.StoreInterface) *Directory {
	return &Directory{store: st}
}

// Register creates an account. Username uniqueness rides on the store's
// conditional credential insert, so two racing registrations cannot both win.
func (d *Directory) Register(username, password, fullname string) (models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 50 {
		return models.Account{}, fmt.Errorf("%w: username must be 1-50 characters", ErrInvalidInput)
	}
	if password == "" {
		return models.Account{}, fmt.Errorf("%w: password must not be empty", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, err
	}

	acc := models.Account{
		ID:       uuid.NewString(),
		Username: username,
		Fullname: fullname,
		Created:  time.Now(),
	}

	applied, err := d.store.CreateAccount(acc, string(hash))
	if err != nil {
		return models.Account{}, err
	}
	if !applied {
		return models.Account{}, ErrUsernameTaken
	}

	logg.Info("directory", "Account registered (username anonymized)")
	return acc, nil
}

// Login verifies credentials and returns the account.
func (d *Directory) Login(username, password string) (models.Account, error) {
	accountID, hash, err := d.store.GetCredentials(username)
	if err != nil {
		return models.Account{}, err
	}
	if accountID == "" {
		return models.Account{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return models.Account{}, ErrInvalidCredentials
	}

	acc, ok, err := d.store.GetAccount(accountID)
	if err != nil {
		return models.Account{}, err
	}
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (d *Directory) Get(accountID string) (models.Account, error) {
	acc, ok, err := d.store.GetAccount(accountID)
	if err != nil {
		return models.Account{}, err
	}
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (d *Directory) Exists(accountID string) (bool, error) {
	_, ok, err := d.store.GetAccount(accountID)
	return ok, err
}

func (d *Directory) IsAdmin(accountID string) (bool, error) {
	acc, ok, err := d.store.GetAccount(accountID)
	if err != nil {
		return false, err
	}
	return ok && acc.IsAdmin, nil
}

// ProfileFields is the whitelisted field set for profile edits. Nil means
// leave unchanged. Avatar carries an opaque blob-store reference path, the
// same contract as post media.
type ProfileFields struct {
	Fullname *string
	Bio      *string
	Avatar   *string
}

// UpdateProfile applies the supplied fields to the caller's own account.
func (d *Directory) UpdateProfile(accountID string, fields ProfileFields) (models.Account, error) {
	acc, err := d.Get(accountID)
	if err != nil {
		return models.Account{}, err
	}

	if fields.Fullname != nil {
		acc.Fullname = *fields.Fullname
	}
	if fields.Bio != nil {
		acc.Bio = *fields.Bio
	}
	if fields.Avatar != nil {
		acc.Avatar = *fields.Avatar
	}

	if err := d.store.UpdateAccount(acc); err != nil {
		return models.Account{}, err
	}

	logg.Info("directory", "Profile updated (account_id anonymized)")
	return acc, nil
}

// ToggleFollow flips the follow edge and reports the resulting direction:
// true when follower now follows followee.
func (d *Directory) ToggleFollow(follower, followee string) (bool, error) {
	if follower == followee {
		return false, ErrSelfFollow
	}

	for _, id := range []string{follower, followee} {
		ok, err := d.Exists(id)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, ErrAccountNotFound
		}
	}

	following, err := d.store.IsFollowing(follower, followee)
	if err != nil {
		return false, err
	}

	if following {
		if err := d.store.RemoveFollow(follower, followee); err != nil {
			return false, err
		}
		logg.Info("directory", "Unfollowed (account IDs anonymized)")
		return false, nil
	}

	if err := d.store.AddFollow(follower, followee); err != nil {
		return false, err
	}
	logg.Info("directory", "Followed (account IDs anonymized)")
	return true, nil
}

func (d *Directory) IsFollowing(a, b string) (bool, error) {
	return d.store.IsFollowing(a, b)
}

func (d *Directory) FollowingSet(accountID string) ([]string, error) {
	return d.store.Following(accountID)
}

func (d *Directory) Followers(accountID string) ([]string, error) {
	return d.store.Followers(accountID)
}

// Profile is an account enriched with graph and post counts.
type Profile struct {
	models.Account
	FollowerCount  int `json:"follower_count"`
	FollowingCount int `json:"following_count"`
	PostsCount     int `json:"posts_count"`
}

func (d *Directory) Profile(accountID string) (Profile, error) {
	acc, err := d.Get(accountID)
	if err != nil {
		return Profile{}, err
	}

	followers, err := d.store.Followers(accountID)
	if err != nil {
		return Profile{}, err
	}
	following, err := d.store.Following(accountID)
	if err != nil {
		return Profile{}, err
	}
	posts, err := d.store.PostsByAuthor(accountID)
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		Account:        acc,
		FollowerCount:  len(followers),
		FollowingCount: len(following),
		PostsCount:     len(posts),
	}, nil
}

// Suggestions returns up to n random accounts the viewer does not already
// follow, excluding the viewer.
func (d *Directory) Suggestions(viewer string, n int) ([]models.Account, error) {
	if n <= 0 {
		n = 5
	}

	following, err := d.store.Following(viewer)
	if err != nil {
		return nil, err
	}
	exclude := map[string]bool{viewer: true}
	for _, id := range following {
		exclude[id] = true
	}

	all, err := d.store.ListAccounts()
	if err != nil {
		return nil, err
	}

	var candidates []models.Account
	for _, acc := range all {
		if !exclude[acc.ID] {
			candidates = append(candidates, acc)
		}
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates, nil
}

// DeleteAccount removes the account's posts, then its credential and
// account rows. Follow edges pointing at the account become dangling and
// are skipped by readers, mirroring the post cascade contract.
func (d *Directory) DeleteAccount(accountID string) ([]models.Post, error) {
	acc, err := d.Get(accountID)
	if err != nil {
		return nil, err
	}

	posts, err := d.store.PostsByAuthor(accountID)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if err := d.store.DeletePost(p); err != nil {
			return nil, err
		}
	}

	if err := d.store.DeleteAccount(acc.ID, acc.Username); err != nil {
		return nil, err
	}

	logg.Info("directory", "Account deleted with post cascade (account_id anonymized)")
	return posts, nil
}
