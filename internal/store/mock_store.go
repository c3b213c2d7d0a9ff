package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

// MockStore simulates Cassandra operations for testing. A single mutex
// stands in for the per-row linearizability of lightweight transactions.
type MockStore struct {
	mu sync.Mutex

	Accounts    map[string]models.Account
	Credentials map[string][2]string // username -> {account_id, password_hash}
	FollowEdges map[string]map[string]bool
	Groups      map[string]models.Group
	GroupNames  map[string]string // name -> group_id
	MemberSet   map[string]map[string]bool
	PendingSet  map[string]map[string]bool
	Posts       map[string]models.Post
	LikeSet     map[string]map[string]bool
	CommentLog  map[string][]models.Comment
	Totals      map[string]int64
	DayCounts   map[string]int64
	AuthorCnts  map[string]int64

	ShouldFail bool // flag to simulate failures
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Accounts:    make(map[string]models.Account),
		Credentials: make(map[string][2]string),
		FollowEdges: make(map[string]map[string]bool),
		Groups:      make(map[string]models.Group),
		GroupNames:  make(map[string]string),
		MemberSet:   make(map[string]map[string]bool),
		PendingSet:  make(map[string]map[string]bool),
		Posts:       make(map[string]models.Post),
		LikeSet:     make(map[string]map[string]bool),
		CommentLog:  make(map[string][]models.Comment),
		Totals:      make(map[string]int64),
		DayCounts:   make(map[string]int64),
		AuthorCnts:  make(map[string]int64),
	}
}

func (m *MockStore) Close() {}

func (m *MockStore) fail(msg string) error {
	if m.ShouldFail {
		return errors.New("mock: " + msg)
	}
	return nil
}

// --- Accounts & credentials ---

func (m *MockStore) CreateAccount(acc models.Account, passwordHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create account failed"); err != nil {
		return false, err
	}
	if _, taken := m.Credentials[acc.Username]; taken {
		return false, nil
	}
	m.Credentials[acc.Username] = [2]string{acc.ID, passwordHash}
	m.Accounts[acc.ID] = acc
	return true, nil
}

func (m *MockStore) GetAccount(id string) (models.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get account failed"); err != nil {
		return models.Account{}, false, err
	}
	acc, ok := m.Accounts[id]
	return acc, ok, nil
}

func (m *MockStore) GetCredentials(username string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get credentials failed"); err != nil {
		return "", "", err
	}
	cred, ok := m.Credentials[username]
	if !ok {
		return "", "", nil
	}
	return cred[0], cred[1], nil
}

func (m *MockStore) DeleteAccount(id, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete account failed"); err != nil {
		return err
	}
	delete(m.Credentials, username)
	delete(m.Accounts, id)
	return nil
}

func (m *MockStore) ListAccounts() ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list accounts failed"); err != nil {
		return nil, err
	}
	var res []models.Account
	for _, acc := range m.Accounts {
		res = append(res, acc)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *MockStore) UpdateAccount(acc models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update account failed"); err != nil {
		return err
	}
	if _, ok := m.Accounts[acc.ID]; ok {
		m.Accounts[acc.ID] = acc
	}
	return nil
}

func (m *MockStore) SetAccountAdmin(id string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("set admin failed"); err != nil {
		return err
	}
	acc, ok := m.Accounts[id]
	if ok {
		acc.IsAdmin = isAdmin
		m.Accounts[id] = acc
	}
	return nil
}

// --- Follow edges ---

func (m *MockStore) AddFollow(follower, followee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("add follow failed"); err != nil {
		return err
	}
	if m.FollowEdges[follower] == nil {
		m.FollowEdges[follower] = make(map[string]bool)
	}
	m.FollowEdges[follower][followee] = true
	return nil
}

func (m *MockStore) RemoveFollow(follower, followee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("remove follow failed"); err != nil {
		return err
	}
	delete(m.FollowEdges[follower], followee)
	return nil
}

func (m *MockStore) IsFollowing(follower, followee string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("is following failed"); err != nil {
		return false, err
	}
	return m.FollowEdges[follower][followee], nil
}

func (m *MockStore) Following(account string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("following failed"); err != nil {
		return nil, err
	}
	return sortedKeys(m.FollowEdges[account]), nil
}

func (m *MockStore) Followers(account string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("followers failed"); err != nil {
		return nil, err
	}
	var res []string
	for follower, edges := range m.FollowEdges {
		if edges[account] {
			res = append(res, follower)
		}
	}
	sort.Strings(res)
	return res, nil
}

// --- Groups ---

func (m *MockStore) ClaimGroupName(name, groupID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("claim group name failed"); err != nil {
		return false, err
	}
	if _, taken := m.GroupNames[name]; taken {
		return false, nil
	}
	m.GroupNames[name] = groupID
	return true, nil
}

func (m *MockStore) ReleaseGroupName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("release group name failed"); err != nil {
		return err
	}
	delete(m.GroupNames, name)
	return nil
}

func (m *MockStore) CreateGroup(g models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create group failed"); err != nil {
		return err
	}
	m.Groups[g.ID] = g
	return nil
}

func (m *MockStore) GetGroup(id string) (models.Group, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get group failed"); err != nil {
		return models.Group{}, false, err
	}
	g, ok := m.Groups[id]
	return g, ok, nil
}

func (m *MockStore) UpdateGroup(g models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update group failed"); err != nil {
		return err
	}
	m.Groups[g.ID] = g
	return nil
}

func (m *MockStore) DeleteGroup(g models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete group failed"); err != nil {
		return err
	}
	delete(m.GroupNames, g.Name)
	delete(m.MemberSet, g.ID)
	delete(m.PendingSet, g.ID)
	delete(m.Groups, g.ID)
	return nil
}

func (m *MockStore) ListGroups() ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list groups failed"); err != nil {
		return nil, err
	}
	var res []models.Group
	for _, g := range m.Groups {
		res = append(res, g)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// --- Membership & pending sets ---

func (m *MockStore) AddMember(groupID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("add member failed"); err != nil {
		return false, err
	}
	if m.MemberSet[groupID] == nil {
		m.MemberSet[groupID] = make(map[string]bool)
	}
	if m.MemberSet[groupID][accountID] {
		return false, nil
	}
	m.MemberSet[groupID][accountID] = true
	return true, nil
}

func (m *MockStore) RemoveMember(groupID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("remove member failed"); err != nil {
		return false, err
	}
	if !m.MemberSet[groupID][accountID] {
		return false, nil
	}
	delete(m.MemberSet[groupID], accountID)
	return true, nil
}

func (m *MockStore) IsMember(groupID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("is member failed"); err != nil {
		return false, err
	}
	return m.MemberSet[groupID][accountID], nil
}

func (m *MockStore) Members(groupID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("members failed"); err != nil {
		return nil, err
	}
	return sortedKeys(m.MemberSet[groupID]), nil
}

func (m *MockStore) GroupsWhereMember(accountID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("groups where member failed"); err != nil {
		return nil, err
	}
	var res []string
	for groupID, members := range m.MemberSet {
		if members[accountID] {
			res = append(res, groupID)
		}
	}
	sort.Strings(res)
	return res, nil
}

func (m *MockStore) AddPending(groupID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("add pending failed"); err != nil {
		return false, err
	}
	if m.PendingSet[groupID] == nil {
		m.PendingSet[groupID] = make(map[string]bool)
	}
	if m.PendingSet[groupID][accountID] {
		return false, nil
	}
	m.PendingSet[groupID][accountID] = true
	return true, nil
}

func (m *MockStore) RemovePending(groupID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("remove pending failed"); err != nil {
		return false, err
	}
	if !m.PendingSet[groupID][accountID] {
		return false, nil
	}
	delete(m.PendingSet[groupID], accountID)
	return true, nil
}

func (m *MockStore) IsPending(groupID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("is pending failed"); err != nil {
		return false, err
	}
	return m.PendingSet[groupID][accountID], nil
}

func (m *MockStore) PendingRequests(groupID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("pending requests failed"); err != nil {
		return nil, err
	}
	return sortedKeys(m.PendingSet[groupID]), nil
}

// --- Posts, likes, comments ---

func (m *MockStore) AddPost(post models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("add post failed"); err != nil {
		return err
	}
	m.Posts[post.ID] = post
	return nil
}

func (m *MockStore) GetPost(id string) (models.Post, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get post failed"); err != nil {
		return models.Post{}, false, err
	}
	p, ok := m.Posts[id]
	return p, ok, nil
}

func (m *MockStore) DeletePost(post models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete post failed"); err != nil {
		return err
	}
	delete(m.Posts, post.ID)
	delete(m.LikeSet, post.ID)
	delete(m.CommentLog, post.ID)
	return nil
}

func (m *MockStore) PostsByAuthor(accountID string) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("posts by author failed"); err != nil {
		return nil, err
	}
	var res []models.Post
	for _, p := range m.Posts {
		if p.AuthorID == accountID {
			res = append(res, p)
		}
	}
	sortPostsByTimeDesc(res)
	return res, nil
}

func (m *MockStore) PostsByGroup(groupID string) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("posts by group failed"); err != nil {
		return nil, err
	}
	var res []models.Post
	for _, p := range m.Posts {
		if p.GroupID != "" && p.GroupID == groupID {
			res = append(res, p)
		}
	}
	sortPostsByTimeDesc(res)
	return res, nil
}

func (m *MockStore) AddLike(postID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("add like failed"); err != nil {
		return false, err
	}
	if m.LikeSet[postID] == nil {
		m.LikeSet[postID] = make(map[string]bool)
	}
	if m.LikeSet[postID][accountID] {
		return false, nil
	}
	m.LikeSet[postID][accountID] = true
	return true, nil
}

func (m *MockStore) RemoveLike(postID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("remove like failed"); err != nil {
		return false, err
	}
	if !m.LikeSet[postID][accountID] {
		return false, nil
	}
	delete(m.LikeSet[postID], accountID)
	return true, nil
}

func (m *MockStore) Likes(postID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("likes failed"); err != nil {
		return nil, err
	}
	return sortedKeys(m.LikeSet[postID]), nil
}

func (m *MockStore) AddComment(c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("add comment failed"); err != nil {
		return err
	}
	m.CommentLog[c.PostID] = append(m.CommentLog[c.PostID], c)
	return nil
}

func (m *MockStore) Comments(postID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("comments failed"); err != nil {
		return nil, err
	}
	return m.CommentLog[postID], nil
}

// --- Counters ---

func (m *MockStore) IncrTotal(name string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("incr total failed"); err != nil {
		return err
	}
	m.Totals[name] += delta
	return nil
}

func (m *MockStore) IncrPostsByDay(day string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("incr day failed"); err != nil {
		return err
	}
	m.DayCounts[day] += delta
	return nil
}

func (m *MockStore) IncrPostsByAuthor(authorID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("incr author failed"); err != nil {
		return err
	}
	m.AuthorCnts[authorID] += delta
	return nil
}

func (m *MockStore) TotalCount(name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("total count failed"); err != nil {
		return 0, err
	}
	return m.Totals[name], nil
}

func (m *MockStore) PostsByDayCounts() (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("day counts failed"); err != nil {
		return nil, err
	}
	res := make(map[string]int64, len(m.DayCounts))
	for k, v := range m.DayCounts {
		res[k] = v
	}
	return res, nil
}

func (m *MockStore) PostsByAuthorCounts() (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("author counts failed"); err != nil {
		return nil, err
	}
	res := make(map[string]int64, len(m.AuthorCnts))
	for k, v := range m.AuthorCnts {
		res[k] = v
	}
	return res, nil
}

// --- helpers ---

func sortedKeys(set map[string]bool) []string {
	var res []string
	for k := range set {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func sortPostsByTimeDesc(posts []models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Created.Equal(posts[j].Created) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].Created.After(posts[j].Created)
	})
}
