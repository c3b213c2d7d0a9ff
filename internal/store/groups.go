package store

import (
	"github.com/gocql/gocql"

	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

// --- Group rows ---

// ClaimGroupName reserves a globally unique group name via CAS.
func (s *Store) ClaimGroupName(name, groupID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO groups_by_name (name, group_id) VALUES (?, ?) IF NOT EXISTS`,
		name, groupID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to claim group name", err)
		return false, err
	}
	return applied, nil
}

func (s *Store) ReleaseGroupName(name string) error {
	if err := s.Session.Query(`
		DELETE FROM groups_by_name WHERE name = ?`, name,
	).Exec(); err != nil {
		logg.Error("store", "Failed to release group name", err)
		return err
	}
	return nil
}

func (s *Store) CreateGroup(g models.Group) error {
	if err := s.Session.Query(`
		INSERT INTO groups (group_id, name, description, topic, image, visibility, admin_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, g.Topic, g.Image, string(g.Visibility), g.AdminID, g.Created,
	).Exec(); err != nil {
		logg.Error("store", "Failed to create group row", err)
		return err
	}

	logg.Info("store", "Group created (group name anonymized)")
	return nil
}

func (s *Store) GetGroup(id string) (models.Group, bool, error) {
	var g models.Group
	var visibility string
	err := s.Session.Query(`
		SELECT group_id, name, description, topic, image, visibility, admin_id, created_at
		FROM groups WHERE group_id = ?`,
		id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.Topic, &g.Image, &visibility, &g.AdminID, &g.Created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.Group{}, false, nil
		}
		logg.Error("store", "Failed to query group", err)
		return models.Group{}, false, err
	}
	g.Visibility = models.Visibility(visibility)
	return g, true, nil
}

func (s *Store) UpdateGroup(g models.Group) error {
	if err := s.Session.Query(`
		UPDATE groups SET name = ?, description = ?, topic = ?, image = ?, visibility = ?
		WHERE group_id = ?`,
		g.Name, g.Description, g.Topic, g.Image, string(g.Visibility), g.ID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update group", err)
		return err
	}
	return nil
}

// DeleteGroup removes the group row, its name claim and both membership
// partitions. Post cascade happens before this call.
func (s *Store) DeleteGroup(g models.Group) error {
	members, err := s.Members(g.ID)
	if err != nil {
		return err
	}
	pending, err := s.PendingRequests(g.ID)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	for _, m := range members {
		batch.Query(`DELETE FROM groups_by_account WHERE account_id = ? AND group_id = ?`, m, g.ID)
	}
	batch.Query(`DELETE FROM group_members WHERE group_id = ?`, g.ID)
	if len(pending) > 0 {
		batch.Query(`DELETE FROM group_pending WHERE group_id = ?`, g.ID)
	}
	batch.Query(`DELETE FROM groups_by_name WHERE name = ?`, g.Name)
	batch.Query(`DELETE FROM groups WHERE group_id = ?`, g.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete group", err)
		return err
	}

	logg.Info("store", "Group deleted (group ID anonymized)")
	return nil
}

func (s *Store) ListGroups() ([]models.Group, error) {
	iter := s.Session.Query(`
		SELECT group_id, name, description, topic, image, visibility, admin_id, created_at
		FROM groups`,
	).Iter()

	var res []models.Group
	var g models.Group
	var visibility string
	for iter.Scan(&g.ID, &g.Name, &g.Description, &g.Topic, &g.Image, &visibility, &g.AdminID, &g.Created) {
		g.Visibility = models.Visibility(visibility)
		res = append(res, g)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list groups", err)
		return nil, err
	}
	return res, nil
}

// --- Membership set ---

// AddMember inserts the membership row if absent. Concurrent joins on the
// same pair resolve to a single row.
//
// The groups_by_account reverse index cannot ride in the same batch as the
// conditional insert (LWT statements are limited to a single partition), so
// it is written after. group_members stays the source of truth for every
// membership check; a reverse-index miss only narrows feed assembly until
// the next membership write for the pair rewrites the row.
func (s *Store) AddMember(groupID, accountID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO group_members (group_id, account_id) VALUES (?, ?) IF NOT EXISTS`,
		groupID, accountID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to add group member", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(`
		INSERT INTO groups_by_account (account_id, group_id) VALUES (?, ?)`,
		accountID, groupID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update membership reverse index", err)
		return false, err
	}
	return true, nil
}

// RemoveMember deletes the membership row if present. The loser of a
// concurrent removal observes applied == false. The reverse index follows
// outside the conditional delete, under the same drift contract as AddMember.
func (s *Store) RemoveMember(groupID, accountID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		DELETE FROM group_members WHERE group_id = ? AND account_id = ? IF EXISTS`,
		groupID, accountID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to remove group member", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(`
		DELETE FROM groups_by_account WHERE account_id = ? AND group_id = ?`,
		accountID, groupID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update membership reverse index", err)
		return false, err
	}
	return true, nil
}

func (s *Store) IsMember(groupID, accountID string) (bool, error) {
	var id string
	err := s.Session.Query(`
		SELECT account_id FROM group_members WHERE group_id = ? AND account_id = ?`,
		groupID, accountID,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to query membership", err)
		return false, err
	}
	return true, nil
}

func (s *Store) Members(groupID string) ([]string, error) {
	return s.scanIDs(
		`SELECT account_id FROM group_members WHERE group_id = ?`, groupID,
		"Failed to get group members")
}

func (s *Store) GroupsWhereMember(accountID string) ([]string, error) {
	return s.scanIDs(
		`SELECT group_id FROM groups_by_account WHERE account_id = ?`, accountID,
		"Failed to get membership reverse index")
}

// --- Pending set ---

func (s *Store) AddPending(groupID, accountID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO group_pending (group_id, account_id) VALUES (?, ?) IF NOT EXISTS`,
		groupID, accountID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to add pending request", err)
		return false, err
	}
	return applied, nil
}

// RemovePending is the arbitration point between Approve and RemoveMember
// racing on the same request: exactly one caller gets applied == true.
func (s *Store) RemovePending(groupID, accountID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		DELETE FROM group_pending WHERE group_id = ? AND account_id = ? IF EXISTS`,
		groupID, accountID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to remove pending request", err)
		return false, err
	}
	return applied, nil
}

func (s *Store) IsPending(groupID, accountID string) (bool, error) {
	var id string
	err := s.Session.Query(`
		SELECT account_id FROM group_pending WHERE group_id = ? AND account_id = ?`,
		groupID, accountID,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to query pending request", err)
		return false, err
	}
	return true, nil
}

func (s *Store) PendingRequests(groupID string) ([]string, error) {
	return s.scanIDs(
		`SELECT account_id FROM group_pending WHERE group_id = ?`, groupID,
		"Failed to get pending requests")
}
