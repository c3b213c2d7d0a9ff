// Package groups owns group identity and the membership state machine.
// Every authorization decision is a single MembershipState lookup; no call
// site re-derives member or admin status on its own.
package groups

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yuvalovgit/Project-application-creation/internal/logger"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

var logg = logger.New()

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupNameTaken    = errors.New("group name already exists")
	ErrAlreadyMember     = errors.New("already a member")
	ErrAlreadyRequested  = errors.New("already requested to join")
	ErrNotAMember        = errors.New("not a member")
	ErrNoSuchRequest     = errors.New("no such join request")
	ErrAdminCannotLeave  = errors.New("admin cannot leave the group")
	ErrCannotRemoveAdmin = errors.New("cannot remove the admin")
	ErrNotAuthorized     = errors.New("only the admin may do this")
	ErrInvalidInput      = errors.New("invalid input")
)

// State is the membership state of an (group, account) pair.
type State int

const (
	NonMember State = iota
	PendingApproval
	Member
	Admin
)

func (s State) String() string {
	switch s {
	case PendingApproval:
		return "pending"
	case Member:
		return "member"
	case Admin:
		return "admin"
	default:
		return "non-member"
	}
}

// IsMember reports whether the state grants member rights.
func (s State) IsMember() bool { return s == Member || s == Admin }

// AccountChecker validates account identity; the engine needs nothing else
// from the directory.
type AccountChecker interface {
	Exists(accountID string) (bool, error)
}

// Engine is the Group Membership Engine.
type Engine struct {
	store    store.StoreInterface
	accounts AccountChecker
}

func New(st store.StoreInterface, accounts AccountChecker) *Engine {
	return &Engine{store: st, accounts: accounts}
}

func (e *Engine) checkAccount(accountID string) error {
	ok, err := e.accounts.Exists(accountID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidInput
	}
	return nil
}

// MembershipState resolves the canonical state for a (group, account) pair.
// Returns ErrGroupNotFound when the group does not exist.
func (e *Engine) MembershipState(groupID, accountID string) (State, error) {
	g, ok, err := e.store.GetGroup(groupID)
	if err != nil {
		return NonMember, err
	}
	if !ok {
		return NonMember, ErrGroupNotFound
	}

	if g.AdminID == accountID {
		return Admin, nil
	}

	member, err := e.store.IsMember(groupID, accountID)
	if err != nil {
		return NonMember, err
	}
	if member {
		return Member, nil
	}

	pending, err := e.store.IsPending(groupID, accountID)
	if err != nil {
		return NonMember, err
	}
	if pending {
		return PendingApproval, nil
	}

	return NonMember, nil
}

// Create makes a new group with the creator as admin and sole member.
func (e *Engine) Create(creator, name, description, topic, image string, visibility models.Visibility) (models.Group, error) {
	if err := e.checkAccount(creator); err != nil {
		return models.Group{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, ErrInvalidInput
	}
	if visibility != models.Private {
		visibility = models.Public
	}

	g := models.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Topic:       topic,
		Image:       image,
		Visibility:  visibility,
		AdminID:     creator,
		Created:     time.Now(),
	}

	applied, err := e.store.ClaimGroupName(name, g.ID)
	if err != nil {
		return models.Group{}, err
	}
	if !applied {
		return models.Group{}, ErrGroupNameTaken
	}

	if err := e.store.CreateGroup(g); err != nil {
		// Free the claim so the name is not stranded.
		e.store.ReleaseGroupName(name)
		return models.Group{}, err
	}

	// The admin is structurally a member from the first write.
	if _, err := e.store.AddMember(g.ID, creator); err != nil {
		// Roll back the half-created group; DeleteGroup also frees the name.
		e.store.DeleteGroup(g)
		return models.Group{}, err
	}

	logg.Info("groups", "Group created (group name anonymized)")
	return g, nil
}

// Join moves the account to Member (public group) or PendingApproval
// (private group). The conditional set insert makes concurrent joins on the
// same pair collapse into one.
func (e *Engine) Join(groupID, accountID string) (State, error) {
	if err := e.checkAccount(accountID); err != nil {
		return NonMember, err
	}

	g, ok, err := e.store.GetGroup(groupID)
	if err != nil {
		return NonMember, err
	}
	if !ok {
		return NonMember, ErrGroupNotFound
	}

	state, err := e.MembershipState(groupID, accountID)
	if err != nil {
		return NonMember, err
	}
	switch state {
	case Member, Admin:
		return state, ErrAlreadyMember
	case PendingApproval:
		return state, ErrAlreadyRequested
	}

	if g.Visibility == models.Private {
		applied, err := e.store.AddPending(groupID, accountID)
		if err != nil {
			return NonMember, err
		}
		if !applied {
			return PendingApproval, ErrAlreadyRequested
		}
		logg.Info("groups", "Join request queued (account_id anonymized)")
		return PendingApproval, nil
	}

	applied, err := e.store.AddMember(groupID, accountID)
	if err != nil {
		return NonMember, err
	}
	if !applied {
		return Member, ErrAlreadyMember
	}
	logg.Info("groups", "Member joined (account_id anonymized)")
	return Member, nil
}

// Leave moves a member back to NonMember. The admin can never leave;
// deleting the group is the only way out for them.
func (e *Engine) Leave(groupID, accountID string) error {
	state, err := e.MembershipState(groupID, accountID)
	if err != nil {
		return err
	}
	if state == Admin {
		return ErrAdminCannotLeave
	}

	applied, err := e.store.RemoveMember(groupID, accountID)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotAMember
	}

	logg.Info("groups", "Member left (account_id anonymized)")
	return nil
}

// Approve promotes a pending account to member. The conditional pending
// delete arbitrates a race with RemoveMember: the loser sees
// ErrNoSuchRequest instead of silently succeeding twice.
func (e *Engine) Approve(groupID, approver, target string) error {
	approverState, err := e.MembershipState(groupID, approver)
	if err != nil {
		return err
	}
	if approverState != Admin {
		return ErrNotAuthorized
	}

	applied, err := e.store.RemovePending(groupID, target)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNoSuchRequest
	}

	if _, err := e.store.AddMember(groupID, target); err != nil {
		return err
	}

	logg.Info("groups", "Join request approved (account_id anonymized)")
	return nil
}

// Reject drops a pending join request without granting membership.
func (e *Engine) Reject(groupID, approver, target string) error {
	approverState, err := e.MembershipState(groupID, approver)
	if err != nil {
		return err
	}
	if approverState != Admin {
		return ErrNotAuthorized
	}

	applied, err := e.store.RemovePending(groupID, target)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNoSuchRequest
	}

	logg.Info("groups", "Join request rejected (account_id anonymized)")
	return nil
}

// RemoveMember evicts a member. The target's pending row, if any, goes too,
// so an in-flight Approve on the same account loses cleanly.
func (e *Engine) RemoveMember(groupID, approver, target string) error {
	approverState, err := e.MembershipState(groupID, approver)
	if err != nil {
		return err
	}
	if approverState != Admin {
		return ErrNotAuthorized
	}

	targetState, err := e.MembershipState(groupID, target)
	if err != nil {
		return err
	}
	if targetState == Admin {
		return ErrCannotRemoveAdmin
	}

	if _, err := e.store.RemovePending(groupID, target); err != nil {
		return err
	}

	applied, err := e.store.RemoveMember(groupID, target)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotAMember
	}

	logg.Info("groups", "Member removed (account_id anonymized)")
	return nil
}

// UpdateFields is the whitelisted field set for group updates. Nil means
// leave unchanged.
type UpdateFields struct {
	Name        *string
	Description *string
	Topic       *string
	Image       *string
	Visibility  *models.Visibility
}

// Update applies the whitelisted fields atomically. A rename re-claims the
// name so uniqueness holds under concurrent renames.
func (e *Engine) Update(groupID, approver string, fields UpdateFields) (models.Group, error) {
	state, err := e.MembershipState(groupID, approver)
	if err != nil {
		return models.Group{}, err
	}
	if state != Admin {
		return models.Group{}, ErrNotAuthorized
	}

	g, ok, err := e.store.GetGroup(groupID)
	if err != nil {
		return models.Group{}, err
	}
	if !ok {
		return models.Group{}, ErrGroupNotFound
	}

	oldName := g.Name
	if fields.Name != nil {
		newName := strings.TrimSpace(*fields.Name)
		if newName == "" {
			return models.Group{}, ErrInvalidInput
		}
		g.Name = newName
	}
	if fields.Description != nil {
		g.Description = *fields.Description
	}
	if fields.Topic != nil {
		g.Topic = *fields.Topic
	}
	if fields.Image != nil {
		g.Image = *fields.Image
	}
	if fields.Visibility != nil {
		if *fields.Visibility == models.Private {
			g.Visibility = models.Private
		} else {
			g.Visibility = models.Public
		}
	}

	if g.Name != oldName {
		applied, err := e.store.ClaimGroupName(g.Name, g.ID)
		if err != nil {
			return models.Group{}, err
		}
		if !applied {
			return models.Group{}, ErrGroupNameTaken
		}
	}

	if err := e.store.UpdateGroup(g); err != nil {
		// Free the freshly claimed name; the group still answers to oldName.
		if g.Name != oldName {
			e.store.ReleaseGroupName(g.Name)
		}
		return models.Group{}, err
	}

	// The old claim is released only once the row carries the new name.
	if g.Name != oldName {
		if err := e.store.ReleaseGroupName(oldName); err != nil {
			return models.Group{}, err
		}
	}

	logg.Info("groups", "Group updated (group name anonymized)")
	return g, nil
}

// Delete removes the group after cascading deletion of every post scoped to
// it. This is the only transition that retires an Admin state. Returns the
// cascaded posts so callers can publish their deletion events.
func (e *Engine) Delete(groupID, approver string) ([]models.Post, error) {
	state, err := e.MembershipState(groupID, approver)
	if err != nil {
		return nil, err
	}
	if state != Admin {
		return nil, ErrNotAuthorized
	}

	g, ok, err := e.store.GetGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGroupNotFound
	}

	posts, err := e.store.PostsByGroup(groupID)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if err := e.store.DeletePost(p); err != nil {
			return nil, err
		}
	}

	if err := e.store.DeleteGroup(g); err != nil {
		return nil, err
	}

	logg.Info("groups", "Group deleted with post cascade (group ID anonymized)")
	return posts, nil
}

// --- Reads ---

func (e *Engine) Get(groupID string) (models.Group, error) {
	g, ok, err := e.store.GetGroup(groupID)
	if err != nil {
		return models.Group{}, err
	}
	if !ok {
		return models.Group{}, ErrGroupNotFound
	}
	return g, nil
}

func (e *Engine) List() ([]models.Group, error) {
	return e.store.ListGroups()
}

// Search returns groups whose name contains the query, case-insensitive.
func (e *Engine) Search(query string) ([]models.Group, error) {
	all, err := e.store.ListGroups()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var res []models.Group
	for _, g := range all {
		if strings.Contains(strings.ToLower(g.Name), query) {
			res = append(res, g)
		}
	}
	return res, nil
}

func (e *Engine) Members(groupID string) ([]string, error) {
	if _, err := e.Get(groupID); err != nil {
		return nil, err
	}
	return e.store.Members(groupID)
}

func (e *Engine) GroupsWhereMember(accountID string) ([]string, error) {
	return e.store.GroupsWhereMember(accountID)
}

// PendingRequests lists a private group's join queue; admin only.
func (e *Engine) PendingRequests(groupID, requester string) ([]string, error) {
	state, err := e.MembershipState(groupID, requester)
	if err != nil {
		return nil, err
	}
	if state != Admin {
		return nil, ErrNotAuthorized
	}
	return e.store.PendingRequests(groupID)
}
