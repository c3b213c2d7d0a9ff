package server

import (
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yuvalovgit/Project-application-creation/internal/directory"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

// issueToken signs a 24h HS256 bearer token for the account.
func issueToken(accountID string) (string, error) {
	secret := []byte(os.Getenv("JWT_SECRET"))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": accountID,
		"exp":        time.Now().Add(time.Hour * 24).Unix(),
	})
	return token.SignedString(secret)
}

// registerHandler creates a new account.
// Expects JSON body: {"username": "...", "password": "...", "fullname": "..."}
// Returns JSON response: {"account_id": <id>, "token": <jwt>}
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Fullname string `json:"fullname"`
	}
	if !decodeJSON(w, r, &body) {
		logg.Info("http/register", "Invalid request body")
		return
	}

	acc, err := s.directory.Register(body.Username, body.Password, body.Fullname)
	if err != nil {
		s.fail(w, "http/register", err)
		return
	}

	tokenStr, err := issueToken(acc.ID)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	s.publishEvent(models.Event{Kind: models.EventAccountRegistered, AccountID: acc.ID})
	logg.Info("http/register", "Account registered with account_id="+acc.ID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"account_id": acc.ID,
		"token":      tokenStr,
	})
}

// loginHandler verifies credentials and returns a fresh token.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	acc, err := s.directory.Login(body.Username, body.Password)
	if err != nil {
		s.fail(w, "http/login", err)
		return
	}

	tokenStr, err := issueToken(acc.ID)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": acc.ID,
		"token":      tokenStr,
	})
}

// getAccountHandler returns an account profile with graph and post counts.
func (s *Server) getAccountHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.directory.Profile(r.PathValue("id"))
	if err != nil {
		s.fail(w, "http/accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// updateProfileHandler edits the caller's own profile. Absent fields are
// left unchanged.
// Expects JSON body with any of: {"fullname": "...", "bio": "...", "avatar": "..."}
func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		Fullname *string `json:"fullname"`
		Bio      *string `json:"bio"`
		Avatar   *string `json:"avatar"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	acc, err := s.directory.UpdateProfile(accountID, directory.ProfileFields{
		Fullname: body.Fullname,
		Bio:      body.Bio,
		Avatar:   body.Avatar,
	})
	if err != nil {
		s.fail(w, "http/accounts", err)
		return
	}

	logg.Info("http/accounts", "Profile updated by account_id="+accountID)
	writeJSON(w, http.StatusOK, acc)
}

// followHandler toggles the follow edge from the caller to the target.
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	followed, err := s.directory.ToggleFollow(accountID, r.PathValue("id"))
	if err != nil {
		s.fail(w, "http/follow", err)
		return
	}

	logg.Info("http/follow", "Follow toggled by account_id="+accountID)
	writeJSON(w, http.StatusOK, map[string]any{"followed": followed})
}

// accountPostsHandler returns the target account's posts, newest first.
func (s *Server) accountPostsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.directory.Get(id); err != nil {
		s.fail(w, "http/accounts", err)
		return
	}

	posts, err := s.feed.PostsForAuthor(id)
	if err != nil {
		s.fail(w, "http/accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// suggestedAccountsHandler returns random accounts the caller doesn't follow.
func (s *Server) suggestedAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	suggestions, err := s.directory.Suggestions(accountID, 5)
	if err != nil {
		s.fail(w, "http/accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// deleteAccountHandler deletes the caller's account and cascades its posts.
func (s *Server) deleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	posts, err := s.directory.DeleteAccount(accountID)
	if err != nil {
		s.fail(w, "http/accounts", err)
		return
	}

	for _, p := range posts {
		s.publishEvent(models.Event{Kind: models.EventPostDeleted, PostID: p.ID, AuthorID: p.AuthorID, GroupID: p.GroupID, Occurred: p.Created})
	}
	s.publishEvent(models.Event{Kind: models.EventAccountDeleted, AccountID: accountID})

	logg.Info("http/accounts", "Account deleted account_id="+accountID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}
