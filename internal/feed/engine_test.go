package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/yuvalovgit/Project-application-creation/internal/directory"
	"github.com/yuvalovgit/Project-application-creation/internal/groups"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

type allAccounts struct{}

func (allAccounts) Exists(string) (bool, error) { return true, nil }

// newTestEngine wires a feed engine over the real directory and membership
// engines, all sharing one mock store.
func newTestEngine(t *testing.T) (*Engine, *directory.Directory, *groups.Engine, *store.MockStore) {
	t.Helper()
	st := store.NewMock()
	dir := directory.New(st)
	grp := groups.New(st, allAccounts{})
	return New(st, dir, grp), dir, grp, st
}

func seedAccount(t *testing.T, st *store.MockStore, id, username string) {
	t.Helper()
	applied, err := st.CreateAccount(models.Account{ID: id, Username: username, Created: time.Now()}, "x")
	if err != nil || !applied {
		t.Fatalf("seed account %s failed: applied=%v err=%v", id, applied, err)
	}
}

// --- CreatePost ---

func TestCreatePost_Plain(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	post, err := e.CreatePost("u1", "hello", Media{}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if post.AuthorID != "u1" || post.GroupID != "" {
		t.Fatalf("unexpected post: %+v", post)
	}
}

func TestCreatePost_Empty(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	if _, err := e.CreatePost("u1", "   ", Media{}, ""); !errors.Is(err, ErrEmptyPost) {
		t.Fatalf("expected ErrEmptyPost, got %v", err)
	}

	// Media-only posts are fine.
	if _, err := e.CreatePost("u1", "", Media{Image: "/uploads/posts/a.png"}, ""); err != nil {
		t.Fatalf("media-only post failed: %v", err)
	}
}

func TestCreatePost_RequiresMembership(t *testing.T) {
	e, _, grp, _ := newTestEngine(t)
	g, _ := grp.Create("u1", "gophers", "", "", "", models.Public)

	if _, err := e.CreatePost("stranger", "hi", Media{}, g.ID); !errors.Is(err, groups.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}

	grp.Join(g.ID, "u2")
	if _, err := e.CreatePost("u2", "hi", Media{}, g.ID); err != nil {
		t.Fatalf("member post failed: %v", err)
	}

	// The admin can post too.
	if _, err := e.CreatePost("u1", "hi from admin", Media{}, g.ID); err != nil {
		t.Fatalf("admin post failed: %v", err)
	}
}

// A post must never land on a group deleted a moment earlier.
func TestCreatePost_DeletedGroup(t *testing.T) {
	e, _, grp, _ := newTestEngine(t)
	g, _ := grp.Create("u1", "gophers", "", "", "", models.Public)
	grp.Join(g.ID, "u2")

	if _, err := grp.Delete(g.ID, "u1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := e.CreatePost("u2", "too late", Media{}, g.ID); !errors.Is(err, groups.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}

	posts, _ := e.PostsForGroup(g.ID)
	if len(posts) != 0 {
		t.Fatalf("orphaned post persisted: %v", posts)
	}
}

// --- AssembleFeed ---

func TestAssembleFeed_Predicate(t *testing.T) {
	e, dir, grp, st := newTestEngine(t)
	seedAccount(t, st, "viewer", "viewer")
	seedAccount(t, st, "friend", "friend")
	seedAccount(t, st, "stranger", "stranger")

	if _, err := dir.ToggleFollow("viewer", "friend"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	g, _ := grp.Create("friend", "gophers", "", "", "", models.Public)
	grp.Join(g.ID, "viewer")

	own, _ := e.CreatePost("viewer", "my own", Media{}, "")
	followed, _ := e.CreatePost("friend", "from friend", Media{}, "")
	inGroup, _ := e.CreatePost("friend", "friend in group", Media{}, g.ID)
	e.CreatePost("stranger", "invisible", Media{}, "")

	posts, err := e.AssembleFeed("viewer", 0)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	want := map[string]bool{own.ID: true, followed.ID: true, inGroup.ID: true}
	if len(posts) != len(want) {
		t.Fatalf("expected %d posts, got %d: %v", len(want), len(posts), posts)
	}
	for _, p := range posts {
		if !want[p.ID] {
			t.Fatalf("unexpected post in feed: %+v", p)
		}
	}
}

// A post matching both feed arms (followed author AND shared group) must
// appear exactly once.
func TestAssembleFeed_NoDuplicates(t *testing.T) {
	e, dir, grp, st := newTestEngine(t)
	seedAccount(t, st, "viewer", "viewer")
	seedAccount(t, st, "friend", "friend")

	dir.ToggleFollow("viewer", "friend")
	g, _ := grp.Create("friend", "gophers", "", "", "", models.Public)
	grp.Join(g.ID, "viewer")

	post, _ := e.CreatePost("friend", "both arms", Media{}, g.ID)

	posts, err := e.AssembleFeed("viewer", 0)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	count := 0
	for _, p := range posts {
		if p.ID == post.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected post exactly once, got %d occurrences", count)
	}
}

func TestAssembleFeed_OrderAndLimit(t *testing.T) {
	e, _, _, st := newTestEngine(t)
	seedAccount(t, st, "viewer", "viewer")

	base := time.Now()
	for i := 0; i < 5; i++ {
		st.AddPost(models.Post{
			ID:       string(rune('a' + i)),
			AuthorID: "viewer",
			Content:  "p",
			Created:  base.Add(time.Duration(i) * time.Minute),
		})
	}

	posts, err := e.AssembleFeed("viewer", 3)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(posts))
	}
	for i := 1; i < len(posts); i++ {
		if posts[i].Created.After(posts[i-1].Created) {
			t.Fatalf("feed not ordered newest first: %v", posts)
		}
	}
	if posts[0].ID != "e" {
		t.Fatalf("expected newest post first, got %s", posts[0].ID)
	}
}

// Removed members stop seeing group-scoped posts.
func TestAssembleFeed_RemovedMemberLosesVisibility(t *testing.T) {
	e, _, grp, st := newTestEngine(t)
	seedAccount(t, st, "viewer", "viewer")
	seedAccount(t, st, "admin", "admin")

	g, _ := grp.Create("admin", "gophers", "", "", "", models.Public)
	grp.Join(g.ID, "viewer")
	post, _ := e.CreatePost("admin", "group only", Media{}, g.ID)

	posts, _ := e.AssembleFeed("viewer", 0)
	if len(posts) != 1 || posts[0].ID != post.ID {
		t.Fatalf("expected group post visible before removal: %v", posts)
	}

	if err := grp.RemoveMember(g.ID, "admin", "viewer"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	posts, _ = e.AssembleFeed("viewer", 0)
	if len(posts) != 0 {
		t.Fatalf("removed member still sees group posts: %v", posts)
	}
}

// --- ToggleLike ---

func TestToggleLike_Idempotence(t *testing.T) {
	e, _, _, st := newTestEngine(t)
	post, _ := e.CreatePost("u1", "likeable", Media{}, "")

	liked, err := e.ToggleLike(post.ID, "u2")
	if err != nil || !liked {
		t.Fatalf("expected liked=true, got liked=%v err=%v", liked, err)
	}

	liked, err = e.ToggleLike(post.ID, "u2")
	if err != nil || liked {
		t.Fatalf("expected liked=false, got liked=%v err=%v", liked, err)
	}

	likes, _ := st.Likes(post.ID)
	if len(likes) != 0 {
		t.Fatalf("double toggle should restore the original like set: %v", likes)
	}
}

func TestToggleLike_PostNotFound(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	if _, err := e.ToggleLike("missing", "u1"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

// --- Comments ---

func TestAddComment(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	post, _ := e.CreatePost("u1", "discuss", Media{}, "")

	if _, err := e.AddComment(post.ID, "u2", "  "); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("expected ErrEmptyComment, got %v", err)
	}

	c, err := e.AddComment(post.ID, "u2", "  nice post  ")
	if err != nil {
		t.Fatalf("comment failed: %v", err)
	}
	if c.Text != "nice post" {
		t.Fatalf("expected trimmed text, got %q", c.Text)
	}

	e.AddComment(post.ID, "u1", "thanks")

	comments, _ := e.Comments(post.ID)
	if len(comments) != 2 || comments[0].Text != "nice post" || comments[1].Text != "thanks" {
		t.Fatalf("comments not in append order: %v", comments)
	}
}

// --- DeletePost ---

func TestDeletePost_Author(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	post, _ := e.CreatePost("u1", "temp", Media{}, "")

	if _, err := e.DeletePost(post.ID, "u1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := e.GetPost(post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestDeletePost_GroupAdmin(t *testing.T) {
	e, _, grp, _ := newTestEngine(t)
	g, _ := grp.Create("admin", "gophers", "", "", "", models.Public)
	grp.Join(g.ID, "member")

	post, _ := e.CreatePost("member", "in group", Media{}, g.ID)

	if _, err := e.DeletePost(post.ID, "admin"); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
}

func TestDeletePost_NotAuthorized(t *testing.T) {
	e, _, grp, _ := newTestEngine(t)
	g, _ := grp.Create("admin", "gophers", "", "", "", models.Public)
	grp.Join(g.ID, "member")
	grp.Join(g.ID, "other")

	post, _ := e.CreatePost("member", "in group", Media{}, g.ID)

	// Another member has no delete rights, only the author or the admin.
	if _, err := e.DeletePost(post.ID, "other"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	// Non-group post: only the author.
	plain, _ := e.CreatePost("member", "profile", Media{}, "")
	if _, err := e.DeletePost(plain.ID, "admin"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-group post, got %v", err)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	e, _, _, st := newTestEngine(t)
	post, _ := e.CreatePost("u1", "x", Media{}, "")

	st.ShouldFail = true
	if _, err := e.ToggleLike(post.ID, "u2"); err == nil {
		t.Fatal("expected error from failing store")
	}
	if _, err := e.AssembleFeed("u1", 0); err == nil {
		t.Fatal("expected error from failing store")
	}
}
