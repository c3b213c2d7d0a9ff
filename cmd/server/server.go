package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appkafka "github.com/yuvalovgit/Project-application-creation/internal/broker"
	"github.com/yuvalovgit/Project-application-creation/internal/directory"
	"github.com/yuvalovgit/Project-application-creation/internal/feed"
	"github.com/yuvalovgit/Project-application-creation/internal/groups"
	config "github.com/yuvalovgit/Project-application-creation/internal/init"
	"github.com/yuvalovgit/Project-application-creation/internal/logger"
	"github.com/yuvalovgit/Project-application-creation/internal/middleware"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

var logg = logger.New()

type Server struct {
	store       store.StoreInterface
	kafkaWriter appkafka.KafkaWriter
	directory   *directory.Directory
	groups      *groups.Engine
	feed        *feed.Engine
	feedLimit   int
}

// newServer wires the three engines over one store. The feed engine sees
// the other two only through its read interfaces.
func newServer(st store.StoreInterface, writer appkafka.KafkaWriter, feedLimit int) *Server {
	dir := directory.New(st)
	grp := groups.New(st, dir)
	if feedLimit <= 0 {
		feedLimit = 100
	}
	return &Server{
		store:       st,
		kafkaWriter: writer,
		directory:   dir,
		groups:      grp,
		feed:        feed.New(st, dir, grp),
		feedLimit:   feedLimit,
	}
}

// routes registers all endpoints on the mux.
func (s *Server) routes(mux *http.ServeMux) {
	auth := func(h http.HandlerFunc) http.Handler {
		return middleware.JWTAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.JWTAuth(middleware.AdminOnly(s.directory.IsAdmin, h))
	}

	// Public endpoints (no JWT required)
	mux.Handle("POST /register", http.HandlerFunc(s.registerHandler))
	mux.Handle("POST /login", http.HandlerFunc(s.loginHandler))

	// Accounts
	mux.Handle("GET /accounts/suggested", auth(s.suggestedAccountsHandler))
	mux.Handle("GET /accounts/{id}", auth(s.getAccountHandler))
	mux.Handle("POST /accounts/{id}/follow", auth(s.followHandler))
	mux.Handle("GET /accounts/{id}/posts", auth(s.accountPostsHandler))
	mux.Handle("PATCH /accounts/me", auth(s.updateProfileHandler))
	mux.Handle("DELETE /accounts/me", auth(s.deleteAccountHandler))

	// Groups
	mux.Handle("POST /groups", auth(s.createGroupHandler))
	mux.Handle("GET /groups", auth(s.listGroupsHandler))
	mux.Handle("GET /groups/{id}", auth(s.getGroupHandler))
	mux.Handle("PATCH /groups/{id}", auth(s.updateGroupHandler))
	mux.Handle("DELETE /groups/{id}", auth(s.deleteGroupHandler))
	mux.Handle("POST /groups/{id}/join", auth(s.joinGroupHandler))
	mux.Handle("POST /groups/{id}/leave", auth(s.leaveGroupHandler))
	mux.Handle("POST /groups/{id}/approve", auth(s.approveJoinHandler))
	mux.Handle("POST /groups/{id}/reject", auth(s.rejectJoinHandler))
	mux.Handle("POST /groups/{id}/remove", auth(s.removeMemberHandler))
	mux.Handle("GET /groups/{id}/posts", auth(s.groupPostsHandler))
	mux.Handle("GET /groups/{id}/requests", auth(s.groupRequestsHandler))

	// Posts & feed
	mux.Handle("POST /posts", auth(s.createPostHandler))
	mux.Handle("GET /posts/{id}", auth(s.getPostHandler))
	mux.Handle("DELETE /posts/{id}", auth(s.deletePostHandler))
	mux.Handle("POST /posts/{id}/like", auth(s.likePostHandler))
	mux.Handle("POST /posts/{id}/comments", auth(s.addCommentHandler))
	mux.Handle("GET /feed", auth(s.getFeedHandler))

	// Dashboard stats (admin accounts only)
	mux.Handle("GET /admin/stats/accounts", admin(s.statsAccountsHandler))
	mux.Handle("GET /admin/stats/posts-per-day", admin(s.statsPostsPerDayHandler))
	mux.Handle("GET /admin/stats/posts-per-author", admin(s.statsPostsPerAuthorHandler))
}

// Run starts the HTTPS server with JWT-protected routes and graceful shutdown.
func Run(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, addr string) {
	cfg := config.Get()
	s := newServer(st, writer, cfg.FeedLimit)

	mux := http.NewServeMux()
	s.routes(mux)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		logg.Info("server", "Starting HTTPS server on "+addr)
		if err := srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey); err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}

// --- Shared handler plumbing ---

// statusFor maps engine errors onto the HTTP error taxonomy:
// absent entity 404, violated state-machine precondition 409, failed
// authorization 403, bad input 400, anything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrAccountNotFound),
		errors.Is(err, groups.ErrGroupNotFound),
		errors.Is(err, feed.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrUsernameTaken),
		errors.Is(err, groups.ErrGroupNameTaken),
		errors.Is(err, groups.ErrAlreadyMember),
		errors.Is(err, groups.ErrAlreadyRequested),
		errors.Is(err, groups.ErrNotAMember),
		errors.Is(err, groups.ErrNoSuchRequest),
		errors.Is(err, groups.ErrAdminCannotLeave),
		errors.Is(err, groups.ErrCannotRemoveAdmin):
		return http.StatusConflict
	case errors.Is(err, groups.ErrNotAuthorized),
		errors.Is(err, feed.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, directory.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, directory.ErrSelfFollow),
		errors.Is(err, directory.ErrInvalidInput),
		errors.Is(err, groups.ErrInvalidInput),
		errors.Is(err, feed.ErrEmptyPost),
		errors.Is(err, feed.ErrEmptyComment):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, module string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logg.Error(module, "Internal error", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return accountID, true
}

// publishEvent sends a best-effort dashboard event. The authoritative state
// is already persisted, so a broker outage never fails the request.
// Occurred defaults to now; deletion events preset it to the entity's
// creation time so counter decrements hit the bucket the creation filled.
func (s *Server) publishEvent(ev models.Event) {
	if ev.Occurred.IsZero() {
		ev.Occurred = time.Now()
	}
	msg, err := appkafka.EncodeEvent(ev)
	if err != nil {
		logg.Error("server", "Failed to encode event", err)
		return
	}
	if err := s.kafkaWriter.WriteMessages(msg); err != nil {
		logg.Error("server", "Failed to publish event", err)
	}
}
