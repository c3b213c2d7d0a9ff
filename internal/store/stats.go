package store

import "github.com/gocql/gocql"

// --- Dashboard counters ---
// Counter tables are only touched by the stats worker; the serving path
// never blocks on them.

func (s *Store) IncrTotal(name string, delta int64) error {
	if err := s.Session.Query(`
		UPDATE stats_totals SET value = value + ? WHERE name = ?`,
		delta, name,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update total counter", err)
		return err
	}
	return nil
}

func (s *Store) IncrPostsByDay(day string, delta int64) error {
	if err := s.Session.Query(`
		UPDATE stats_posts_by_day SET posts = posts + ? WHERE day = ?`,
		delta, day,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update daily post counter", err)
		return err
	}
	return nil
}

func (s *Store) IncrPostsByAuthor(authorID string, delta int64) error {
	if err := s.Session.Query(`
		UPDATE stats_posts_by_author SET posts = posts + ? WHERE author_id = ?`,
		delta, authorID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update author post counter", err)
		return err
	}
	return nil
}

func (s *Store) TotalCount(name string) (int64, error) {
	var v int64
	err := s.Session.Query(`
		SELECT value FROM stats_totals WHERE name = ?`, name,
	).Scan(&v)
	if err != nil {
		if err == gocql.ErrNotFound {
			return 0, nil
		}
		logg.Error("store", "Failed to read total counter", err)
		return 0, err
	}
	return v, nil
}

func (s *Store) PostsByDayCounts() (map[string]int64, error) {
	return s.scanCounts(
		`SELECT day, posts FROM stats_posts_by_day`,
		"Failed to read daily post counters")
}

func (s *Store) PostsByAuthorCounts() (map[string]int64, error) {
	return s.scanCounts(
		`SELECT author_id, posts FROM stats_posts_by_author`,
		"Failed to read author post counters")
}

func (s *Store) scanCounts(stmt, errMsg string) (map[string]int64, error) {
	iter := s.Session.Query(stmt).Iter()

	res := make(map[string]int64)
	var key string
	var v int64
	for iter.Scan(&key, &v) {
		res[key] = v
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", errMsg, err)
		return nil, err
	}
	return res, nil
}
