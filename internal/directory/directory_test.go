package directory

import (
	"errors"
	"testing"
	"time"

	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

func newTestDirectory() (*Directory, *store.MockStore) {
	st := store.NewMock()
	return New(st), st
}

func TestRegister(t *testing.T) {
	d, _ := newTestDirectory()

	acc, err := d.Register("almaz", "secret", "Almaz")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if acc.ID == "" || acc.Username != "almaz" {
		t.Fatalf("unexpected account: %+v", acc)
	}

	if _, err := d.Register("almaz", "other", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	d, _ := newTestDirectory()

	if _, err := d.Register("  ", "secret", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank username, got %v", err)
	}
	if _, err := d.Register("almaz", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	d, _ := newTestDirectory()
	acc, _ := d.Register("almaz", "secret", "")

	got, err := d.Login("almaz", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("expected account %s, got %s", acc.ID, got.ID)
	}

	if _, err := d.Login("almaz", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := d.Login("nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestToggleFollow(t *testing.T) {
	d, _ := newTestDirectory()
	a, _ := d.Register("almaz", "secret", "")
	b, _ := d.Register("nur", "secret", "")

	followed, err := d.ToggleFollow(a.ID, b.ID)
	if err != nil || !followed {
		t.Fatalf("expected followed=true, got followed=%v err=%v", followed, err)
	}

	following, _ := d.IsFollowing(a.ID, b.ID)
	if !following {
		t.Fatal("expected a to follow b")
	}

	set, _ := d.FollowingSet(a.ID)
	if len(set) != 1 || set[0] != b.ID {
		t.Fatalf("unexpected following set: %v", set)
	}

	followers, _ := d.Followers(b.ID)
	if len(followers) != 1 || followers[0] != a.ID {
		t.Fatalf("unexpected followers: %v", followers)
	}

	// Second toggle removes the edge.
	followed, err = d.ToggleFollow(a.ID, b.ID)
	if err != nil || followed {
		t.Fatalf("expected followed=false, got followed=%v err=%v", followed, err)
	}
	following, _ = d.IsFollowing(a.ID, b.ID)
	if following {
		t.Fatal("expected edge removed after second toggle")
	}
}

func TestUpdateProfile(t *testing.T) {
	d, _ := newTestDirectory()
	a, _ := d.Register("almaz", "secret", "Almaz")

	bio := "gopher"
	avatar := "/uploads/avatars/almaz.png"
	updated, err := d.UpdateProfile(a.ID, ProfileFields{Bio: &bio, Avatar: &avatar})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Bio != bio || updated.Avatar != avatar {
		t.Fatalf("unexpected account after update: %+v", updated)
	}
	// Absent fields stay untouched.
	if updated.Fullname != "Almaz" {
		t.Fatalf("fullname changed unexpectedly: %q", updated.Fullname)
	}

	got, _ := d.Get(a.ID)
	if got.Bio != bio || got.Avatar != avatar {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestUpdateProfile_UnknownAccount(t *testing.T) {
	d, _ := newTestDirectory()

	bio := "gopher"
	if _, err := d.UpdateProfile("ghost", ProfileFields{Bio: &bio}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestToggleFollow_SelfFollow(t *testing.T) {
	d, _ := newTestDirectory()
	a, _ := d.Register("almaz", "secret", "")

	if _, err := d.ToggleFollow(a.ID, a.ID); !errors.Is(err, ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}
}

func TestToggleFollow_UnknownAccount(t *testing.T) {
	d, _ := newTestDirectory()
	a, _ := d.Register("almaz", "secret", "")

	if _, err := d.ToggleFollow(a.ID, "ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestProfileCounts(t *testing.T) {
	d, st := newTestDirectory()
	a, _ := d.Register("almaz", "secret", "")
	b, _ := d.Register("nur", "secret", "")

	d.ToggleFollow(b.ID, a.ID)
	st.AddPost(models.Post{ID: "p1", AuthorID: a.ID, Content: "x", Created: time.Now()})

	p, err := d.Profile(a.ID)
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if p.FollowerCount != 1 || p.FollowingCount != 0 || p.PostsCount != 1 {
		t.Fatalf("unexpected counts: %+v", p)
	}
}

func TestSuggestions_ExcludesSelfAndFollowed(t *testing.T) {
	d, _ := newTestDirectory()
	a, _ := d.Register("almaz", "secret", "")
	b, _ := d.Register("nur", "secret", "")
	c, _ := d.Register("dana", "secret", "")

	d.ToggleFollow(a.ID, b.ID)

	suggestions, err := d.Suggestions(a.ID, 5)
	if err != nil {
		t.Fatalf("suggestions failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].ID != c.ID {
		t.Fatalf("expected only %s suggested, got %v", c.ID, suggestions)
	}
}

func TestDeleteAccount_CascadesPosts(t *testing.T) {
	d, st := newTestDirectory()
	a, _ := d.Register("almaz", "secret", "")

	st.AddPost(models.Post{ID: "p1", AuthorID: a.ID, Content: "x", Created: time.Now()})
	st.AddPost(models.Post{ID: "p2", AuthorID: a.ID, Content: "y", Created: time.Now()})

	deleted, err := d.DeleteAccount(a.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("expected 2 cascaded posts, got %d", len(deleted))
	}

	if _, err := d.Get(a.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	posts, _ := st.PostsByAuthor(a.ID)
	if len(posts) != 0 {
		t.Fatalf("posts survived account deletion: %v", posts)
	}

	// The username is free again.
	if _, err := d.Register("almaz", "secret", ""); err != nil {
		t.Fatalf("username should be free after deletion: %v", err)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	d, st := newTestDirectory()
	st.ShouldFail = true

	if _, err := d.Register("almaz", "secret", ""); err == nil {
		t.Fatal("expected error from failing store")
	}
}
