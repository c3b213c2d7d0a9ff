package server

import "net/http"

// Dashboard endpoints read the counters the stats worker maintains from the
// event stream. Numbers are eventually consistent by design.

func (s *Server) statsAccountsHandler(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.TotalCount("accounts")
	if err != nil {
		s.fail(w, "http/stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total_accounts": total})
}

func (s *Server) statsPostsPerDayHandler(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.PostsByDayCounts()
	if err != nil {
		s.fail(w, "http/stats", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) statsPostsPerAuthorHandler(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.PostsByAuthorCounts()
	if err != nil {
		s.fail(w, "http/stats", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
