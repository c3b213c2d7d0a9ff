package server

import (
	"net/http"

	"github.com/yuvalovgit/Project-application-creation/internal/groups"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

// createGroupHandler creates a group with the caller as admin.
// Expects JSON body: {"name": "...", "description": "...", "topic": "...",
// "image": "...", "visibility": "public"|"private"}
func (s *Server) createGroupHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Topic       string            `json:"topic"`
		Image       string            `json:"image"`
		Visibility  models.Visibility `json:"visibility"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	g, err := s.groups.Create(accountID, body.Name, body.Description, body.Topic, body.Image, body.Visibility)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	s.publishEvent(models.Event{Kind: models.EventGroupCreated, GroupID: g.ID, AccountID: accountID})
	logg.Info("http/groups", "Group created by account_id="+accountID)

	writeJSON(w, http.StatusCreated, g)
}

// listGroupsHandler returns all groups, or a name search with ?name=.
func (s *Server) listGroupsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		res []models.Group
		err error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		res, err = s.groups.Search(name)
	} else {
		res, err = s.groups.List()
	}
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// getGroupHandler returns a group with its member list and the caller's
// membership state.
func (s *Server) getGroupHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	groupID := r.PathValue("id")

	g, err := s.groups.Get(groupID)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	members, err := s.groups.Members(groupID)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	state, err := s.groups.MembershipState(groupID, accountID)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"group":   g,
		"members": members,
		"state":   state.String(),
	})
}

// joinGroupHandler joins a public group or queues a private join request.
func (s *Server) joinGroupHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	state, err := s.groups.Join(r.PathValue("id"), accountID)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	status := http.StatusOK
	if state == groups.PendingApproval {
		status = http.StatusAccepted
	}
	logg.Info("http/groups", "Join by account_id="+accountID)
	writeJSON(w, status, map[string]string{"state": state.String()})
}

func (s *Server) leaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	if err := s.groups.Leave(r.PathValue("id"), accountID); err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	logg.Info("http/groups", "Leave by account_id="+accountID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "left group"})
}

// approveJoinHandler lets the admin approve a pending request.
// Expects JSON body: {"account_id": "..."}
func (s *Server) approveJoinHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		AccountID string `json:"account_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := s.groups.Approve(r.PathValue("id"), accountID, body.AccountID); err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	logg.Info("http/groups", "Join request approved by account_id="+accountID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "request approved"})
}

// rejectJoinHandler lets the admin drop a pending request.
func (s *Server) rejectJoinHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		AccountID string `json:"account_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := s.groups.Reject(r.PathValue("id"), accountID, body.AccountID); err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "request rejected"})
}

// removeMemberHandler lets the admin evict a member.
// Expects JSON body: {"account_id": "..."}
func (s *Server) removeMemberHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		AccountID string `json:"account_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := s.groups.RemoveMember(r.PathValue("id"), accountID, body.AccountID); err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	logg.Info("http/groups", "Member removed by account_id="+accountID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "member removed"})
}

// updateGroupHandler applies the whitelisted field set; admin only.
func (s *Server) updateGroupHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		Name        *string            `json:"name"`
		Description *string            `json:"description"`
		Topic       *string            `json:"topic"`
		Image       *string            `json:"image"`
		Visibility  *models.Visibility `json:"visibility"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	g, err := s.groups.Update(r.PathValue("id"), accountID, groups.UpdateFields{
		Name:        body.Name,
		Description: body.Description,
		Topic:       body.Topic,
		Image:       body.Image,
		Visibility:  body.Visibility,
	})
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// deleteGroupHandler deletes a group and every post scoped to it.
func (s *Server) deleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	groupID := r.PathValue("id")

	posts, err := s.groups.Delete(groupID, accountID)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	for _, p := range posts {
		s.publishEvent(models.Event{Kind: models.EventPostDeleted, PostID: p.ID, AuthorID: p.AuthorID, GroupID: p.GroupID, Occurred: p.Created})
	}
	s.publishEvent(models.Event{Kind: models.EventGroupDeleted, GroupID: groupID, AccountID: accountID})

	logg.Info("http/groups", "Group deleted by account_id="+accountID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "group deleted"})
}

// groupPostsHandler returns the group's posts, newest first.
func (s *Server) groupPostsHandler(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, err := s.groups.Get(groupID); err != nil {
		s.fail(w, "http/groups", err)
		return
	}

	posts, err := s.feed.PostsForGroup(groupID)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// groupRequestsHandler lists pending join requests; admin only.
func (s *Server) groupRequestsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	pending, err := s.groups.PendingRequests(r.PathValue("id"), accountID)
	if err != nil {
		s.fail(w, "http/groups", err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}
