package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	appkafka "github.com/yuvalovgit/Project-application-creation/internal/broker"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

//
// --- Helpers ---
//

// generate JWT token for a test account
func makeTestJWT(accountID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": accountID,
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return tokenStr
}

// create HTTP request with JWT token and assert the status
func sendJSONRequest(t *testing.T, method, url string, body any, token string, expectedStatus int) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != expectedStatus {
		b, _ := io.ReadAll(resp.Body)
		defer resp.Body.Close()
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, expectedStatus, resp.StatusCode, string(b))
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}

//
// --- Setup test server ---
//

func setupTestServer(t *testing.T) (*Server, *store.MockStore, *appkafka.MockKafka, *httptest.Server) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret")

	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{}
	s := newServer(mockStore, mockKafka, 100)

	mux := http.NewServeMux()
	s.routes(mux)

	return s, mockStore, mockKafka, httptest.NewServer(mux)
}

// registerHelper creates an account over HTTP and returns its id and token.
func registerHelper(t *testing.T, ts *httptest.Server, username string) (string, string) {
	t.Helper()
	resp := sendJSONRequest(t, "POST", ts.URL+"/register",
		map[string]string{"username": username, "password": "secret"}, "", http.StatusCreated)

	var out struct {
		AccountID string `json:"account_id"`
		Token     string `json:"token"`
	}
	decodeBody(t, resp, &out)
	if out.AccountID == "" || out.Token == "" {
		t.Fatalf("incomplete register response: %+v", out)
	}
	return out.AccountID, out.Token
}

//
// --- Tests ---
//

func TestRegisterAndLogin(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	registerHelper(t, ts, "almaz")

	// Duplicate username is a conflict.
	sendJSONRequest(t, "POST", ts.URL+"/register",
		map[string]string{"username": "almaz", "password": "other"}, "", http.StatusConflict)

	sendJSONRequest(t, "POST", ts.URL+"/login",
		map[string]string{"username": "almaz", "password": "secret"}, "", http.StatusOK)
	sendJSONRequest(t, "POST", ts.URL+"/login",
		map[string]string{"username": "almaz", "password": "wrong"}, "", http.StatusUnauthorized)
}

// full flow: follow -> post -> feed
func TestFollowAndFeedFlow(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	almazID, almazToken := registerHelper(t, ts, "almaz")
	nurID, nurToken := registerHelper(t, ts, "nur")

	// almaz follows nur
	resp := sendJSONRequest(t, "POST", ts.URL+"/accounts/"+nurID+"/follow", nil, almazToken, http.StatusOK)
	var follow struct {
		Followed bool `json:"followed"`
	}
	decodeBody(t, resp, &follow)
	if !follow.Followed {
		t.Fatal("expected followed=true")
	}

	// nur posts
	sendJSONRequest(t, "POST", ts.URL+"/posts",
		map[string]string{"content": "hello from nur"}, nurToken, http.StatusCreated)

	// almaz sees it in the feed
	resp = sendJSONRequest(t, "GET", ts.URL+"/feed", nil, almazToken, http.StatusOK)
	var posts []models.Post
	decodeBody(t, resp, &posts)
	if len(posts) != 1 || posts[0].AuthorID != nurID {
		t.Fatalf("expected nur's post in feed, got %v", posts)
	}

	// nur never sees almaz's side, the edge is one-way
	resp = sendJSONRequest(t, "GET", ts.URL+"/feed", nil, nurToken, http.StatusOK)
	decodeBody(t, resp, &posts)
	for _, p := range posts {
		if p.AuthorID == almazID {
			t.Fatalf("one-way follow leaked: %v", p)
		}
	}
}

// private group: join queues a request, approval grants membership
func TestPrivateGroupJoinFlow(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	_, adminToken := registerHelper(t, ts, "admin")
	memberID, memberToken := registerHelper(t, ts, "member")

	resp := sendJSONRequest(t, "POST", ts.URL+"/groups",
		map[string]string{"name": "gophers", "visibility": "private"}, adminToken, http.StatusCreated)
	var g models.Group
	decodeBody(t, resp, &g)

	// Join queues, 202.
	resp = sendJSONRequest(t, "POST", ts.URL+"/groups/"+g.ID+"/join", nil, memberToken, http.StatusAccepted)
	var join struct {
		State string `json:"state"`
	}
	decodeBody(t, resp, &join)
	if join.State != "pending" {
		t.Fatalf("expected pending state, got %q", join.State)
	}

	// A pending requester cannot post to the group.
	sendJSONRequest(t, "POST", ts.URL+"/posts",
		map[string]string{"content": "sneaky", "group_id": g.ID}, memberToken, http.StatusConflict)

	// The admin sees the request.
	resp = sendJSONRequest(t, "GET", ts.URL+"/groups/"+g.ID+"/requests", nil, adminToken, http.StatusOK)
	var pending []string
	decodeBody(t, resp, &pending)
	if len(pending) != 1 || pending[0] != memberID {
		t.Fatalf("expected pending request from %s, got %v", memberID, pending)
	}

	// Non-admins don't.
	sendJSONRequest(t, "GET", ts.URL+"/groups/"+g.ID+"/requests", nil, memberToken, http.StatusForbidden)

	sendJSONRequest(t, "POST", ts.URL+"/groups/"+g.ID+"/approve",
		map[string]string{"account_id": memberID}, adminToken, http.StatusOK)

	// Member now, posting works.
	resp = sendJSONRequest(t, "GET", ts.URL+"/groups/"+g.ID, nil, memberToken, http.StatusOK)
	var detail struct {
		State string `json:"state"`
	}
	decodeBody(t, resp, &detail)
	if detail.State != "member" {
		t.Fatalf("expected member state, got %q", detail.State)
	}

	sendJSONRequest(t, "POST", ts.URL+"/posts",
		map[string]string{"content": "finally in", "group_id": g.ID}, memberToken, http.StatusCreated)
}

// deleting a group over HTTP cascades its posts
func TestDeleteGroupCascade(t *testing.T) {
	_, _, mockKafka, ts := setupTestServer(t)
	defer ts.Close()

	_, adminToken := registerHelper(t, ts, "admin")

	resp := sendJSONRequest(t, "POST", ts.URL+"/groups",
		map[string]string{"name": "gophers", "visibility": "public"}, adminToken, http.StatusCreated)
	var g models.Group
	decodeBody(t, resp, &g)

	resp = sendJSONRequest(t, "POST", ts.URL+"/posts",
		map[string]string{"content": "doomed", "group_id": g.ID}, adminToken, http.StatusCreated)
	var post models.Post
	decodeBody(t, resp, &post)

	before := len(mockKafka.WrittenMessages)
	sendJSONRequest(t, "DELETE", ts.URL+"/groups/"+g.ID, nil, adminToken, http.StatusOK)

	// One post_deleted per cascaded post, then group_deleted.
	published := mockKafka.WrittenMessages[before:]
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	if string(published[0].Key) != models.EventPostDeleted || string(published[1].Key) != models.EventGroupDeleted {
		t.Fatalf("unexpected event order: %q, %q", published[0].Key, published[1].Key)
	}

	sendJSONRequest(t, "GET", ts.URL+"/groups/"+g.ID, nil, adminToken, http.StatusNotFound)
	sendJSONRequest(t, "GET", ts.URL+"/posts/"+post.ID, nil, adminToken, http.StatusNotFound)
}

// A post_deleted event carries the post's creation time so the day counter
// decrement lands on the bucket the creation filled.
func TestDeletePostEventKeepsCreationTime(t *testing.T) {
	_, _, mockKafka, ts := setupTestServer(t)
	defer ts.Close()

	_, token := registerHelper(t, ts, "almaz")

	resp := sendJSONRequest(t, "POST", ts.URL+"/posts",
		map[string]string{"content": "short-lived"}, token, http.StatusCreated)
	var post models.Post
	decodeBody(t, resp, &post)

	before := len(mockKafka.WrittenMessages)
	sendJSONRequest(t, "DELETE", ts.URL+"/posts/"+post.ID, nil, token, http.StatusOK)

	var ev models.Event
	if err := json.Unmarshal(mockKafka.WrittenMessages[before].Value, &ev); err != nil {
		t.Fatalf("decode event failed: %v", err)
	}
	if ev.Kind != models.EventPostDeleted {
		t.Fatalf("expected post_deleted, got %q", ev.Kind)
	}
	if !ev.Occurred.Equal(post.Created) {
		t.Fatalf("expected event time %v to match creation time %v", ev.Occurred, post.Created)
	}
}

func TestUpdateProfile(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	accountID, token := registerHelper(t, ts, "almaz")

	resp := sendJSONRequest(t, "PATCH", ts.URL+"/accounts/me",
		map[string]string{"bio": "gopher", "avatar": "/uploads/avatars/almaz.png"}, token, http.StatusOK)
	var acc models.Account
	decodeBody(t, resp, &acc)
	if acc.Bio != "gopher" || acc.Avatar != "/uploads/avatars/almaz.png" {
		t.Fatalf("unexpected account after update: %+v", acc)
	}

	// The profile read reflects the edit.
	resp = sendJSONRequest(t, "GET", ts.URL+"/accounts/"+accountID, nil, token, http.StatusOK)
	var profile struct {
		Bio string `json:"bio"`
	}
	decodeBody(t, resp, &profile)
	if profile.Bio != "gopher" {
		t.Fatalf("expected updated bio in profile, got %q", profile.Bio)
	}
}

func TestInvalidJSONRejected(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	req, _ := http.NewRequest("POST", ts.URL+"/register", bytes.NewReader([]byte("{not json")))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMissingTokenRejected(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	sendJSONRequest(t, "GET", ts.URL+"/feed", nil, "", http.StatusUnauthorized)
	sendJSONRequest(t, "POST", ts.URL+"/posts", map[string]string{"content": "x"}, "", http.StatusUnauthorized)
}

func TestAdminStatsGated(t *testing.T) {
	_, mockStore, _, ts := setupTestServer(t)
	defer ts.Close()

	accountID, token := registerHelper(t, ts, "almaz")

	sendJSONRequest(t, "GET", ts.URL+"/admin/stats/accounts", nil, token, http.StatusForbidden)

	if err := mockStore.SetAccountAdmin(accountID, true); err != nil {
		t.Fatalf("set admin failed: %v", err)
	}
	mockStore.IncrTotal("accounts", 3)

	resp := sendJSONRequest(t, "GET", ts.URL+"/admin/stats/accounts", nil, token, http.StatusOK)
	var out struct {
		TotalAccounts int64 `json:"total_accounts"`
	}
	decodeBody(t, resp, &out)
	if out.TotalAccounts != 3 {
		t.Fatalf("expected 3 accounts counted, got %d", out.TotalAccounts)
	}
}

// a broker outage must never fail a write; the state is already persisted
func TestBrokerOutageDoesNotFailRequests(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")

	mockStore := store.NewMock()
	s := newServer(mockStore, &appkafka.MockKafkaFail{}, 100)

	mux := http.NewServeMux()
	s.routes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	_, token := registerHelper(t, ts, "almaz")
	sendJSONRequest(t, "POST", ts.URL+"/posts",
		map[string]string{"content": "still works"}, token, http.StatusCreated)
}

func TestPostContentTooLong(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	_, token := registerHelper(t, ts, "almaz")

	long := bytes.Repeat([]byte("a"), 1001)
	sendJSONRequest(t, "POST", ts.URL+"/posts",
		map[string]string{"content": string(long)}, token, http.StatusBadRequest)
}
