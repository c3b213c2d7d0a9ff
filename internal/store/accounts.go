package store

import (
	"time"

	"github.com/gocql/gocql"

	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

// --- Account & credential operations ---

// CreateAccount claims the username via CAS and writes the account row.
// Returns false without error when the username is already taken.
func (s *Store) CreateAccount(acc models.Account, passwordHash string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO credentials_by_username (username, account_id, password_hash)
		VALUES (?, ?, ?) IF NOT EXISTS`,
		acc.Username, acc.ID, passwordHash,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to claim username", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	err = s.Session.Query(`
		INSERT INTO accounts (account_id, username, fullname, bio, avatar, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Username, acc.Fullname, acc.Bio, acc.Avatar, acc.IsAdmin, acc.Created,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to create account row", err)
		return false, err
	}

	logg.Info("store", "Account created (username anonymized)")
	return true, nil
}

func (s *Store) GetAccount(id string) (models.Account, bool, error) {
	var acc models.Account
	var created time.Time
	err := s.Session.Query(`
		SELECT account_id, username, fullname, bio, avatar, is_admin, created_at
		FROM accounts WHERE account_id = ?`,
		id,
	).Scan(&acc.ID, &acc.Username, &acc.Fullname, &acc.Bio, &acc.Avatar, &acc.IsAdmin, &created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.Account{}, false, nil
		}
		logg.Error("store", "Failed to query account", err)
		return models.Account{}, false, err
	}
	acc.Created = created
	return acc, true, nil
}

// GetCredentials returns the account id and password hash for a username.
// Absent usernames return empty strings without an error.
func (s *Store) GetCredentials(username string) (string, string, error) {
	var id, hash string
	err := s.Session.Query(`
		SELECT account_id, password_hash FROM credentials_by_username WHERE username = ?`,
		username,
	).Scan(&id, &hash)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", "", nil
		}
		logg.Error("store", "Failed to query credentials", err)
		return "", "", err
	}
	return id, hash, nil
}

func (s *Store) DeleteAccount(id, username string) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM credentials_by_username WHERE username = ?`, username)
	batch.Query(`DELETE FROM accounts WHERE account_id = ?`, id)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete account", err)
		return err
	}

	logg.Info("store", "Account deleted (IDs anonymized)")
	return nil
}

func (s *Store) ListAccounts() ([]models.Account, error) {
	iter := s.Session.Query(`
		SELECT account_id, username, fullname, bio, avatar, is_admin, created_at
		FROM accounts`,
	).Iter()

	var res []models.Account
	var acc models.Account
	for iter.Scan(&acc.ID, &acc.Username, &acc.Fullname, &acc.Bio, &acc.Avatar, &acc.IsAdmin, &acc.Created) {
		res = append(res, acc)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list accounts", err)
		return nil, err
	}
	return res, nil
}

// UpdateAccount rewrites the editable profile columns.
func (s *Store) UpdateAccount(acc models.Account) error {
	if err := s.Session.Query(`
		UPDATE accounts SET fullname = ?, bio = ?, avatar = ? WHERE account_id = ?`,
		acc.Fullname, acc.Bio, acc.Avatar, acc.ID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update account profile", err)
		return err
	}
	return nil
}

func (s *Store) SetAccountAdmin(id string, isAdmin bool) error {
	if err := s.Session.Query(`
		UPDATE accounts SET is_admin = ? WHERE account_id = ?`,
		isAdmin, id,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update admin flag", err)
		return err
	}
	return nil
}

// --- Follow edges ---

// AddFollow writes both directions of the edge in one logged batch.
func (s *Store) AddFollow(follower, followee string) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`INSERT INTO follows_by_account (account_id, followee_id) VALUES (?, ?)`, follower, followee)
	batch.Query(`INSERT INTO followers_by_account (account_id, follower_id) VALUES (?, ?)`, followee, follower)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to create follow edge", err)
		return err
	}

	logg.Info("store", "Follow edge created (account IDs anonymized)")
	return nil
}

func (s *Store) RemoveFollow(follower, followee string) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM follows_by_account WHERE account_id = ? AND followee_id = ?`, follower, followee)
	batch.Query(`DELETE FROM followers_by_account WHERE account_id = ? AND follower_id = ?`, followee, follower)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to remove follow edge", err)
		return err
	}

	logg.Info("store", "Follow edge removed (account IDs anonymized)")
	return nil
}

func (s *Store) IsFollowing(follower, followee string) (bool, error) {
	var id string
	err := s.Session.Query(`
		SELECT followee_id FROM follows_by_account WHERE account_id = ? AND followee_id = ?`,
		follower, followee,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to query follow edge", err)
		return false, err
	}
	return true, nil
}

func (s *Store) Following(account string) ([]string, error) {
	return s.scanIDs(
		`SELECT followee_id FROM follows_by_account WHERE account_id = ?`, account,
		"Failed to get following set")
}

func (s *Store) Followers(account string) ([]string, error) {
	return s.scanIDs(
		`SELECT follower_id FROM followers_by_account WHERE account_id = ?`, account,
		"Failed to get followers")
}

// scanIDs collects a single-column id partition into a slice.
func (s *Store) scanIDs(stmt, key, errMsg string) ([]string, error) {
	iter := s.Session.Query(stmt, key).Iter()

	var id string
	var res []string
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", errMsg, err)
		return nil, err
	}
	return res, nil
}
