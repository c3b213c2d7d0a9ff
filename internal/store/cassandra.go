package store

import (
	"fmt"
	"path/filepath"

	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	config "github.com/yuvalovgit/Project-application-creation/internal/init"
	"github.com/yuvalovgit/Project-application-creation/internal/logger"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
)

var logg = logger.New()

// --- Interfaces ---

type SessionInterface interface {
	Query(stmt string, values ...interface{}) *gocql.Query
	NewBatch(batchType gocql.BatchType) *gocql.Batch
	ExecuteBatch(batch *gocql.Batch) error
	Close()
}

// StoreInterface is the persistence contract shared by the engines.
// Mutations on membership, pending and like sets are conditional writes so
// concurrent requests cannot both succeed against the same row.
type StoreInterface interface {
	// Accounts & credentials
	CreateAccount(acc models.Account, passwordHash string) (bool, error)
	GetAccount(id string) (models.Account, bool, error)
	GetCredentials(username string) (accountID, passwordHash string, err error)
	DeleteAccount(id, username string) error
	ListAccounts() ([]models.Account, error)
	UpdateAccount(acc models.Account) error
	SetAccountAdmin(id string, isAdmin bool) error

	// Follow edges
	AddFollow(follower, followee string) error
	RemoveFollow(follower, followee string) error
	IsFollowing(follower, followee string) (bool, error)
	Following(account string) ([]string, error)
	Followers(account string) ([]string, error)

	// Groups
	ClaimGroupName(name, groupID string) (bool, error)
	ReleaseGroupName(name string) error
	CreateGroup(g models.Group) error
	GetGroup(id string) (models.Group, bool, error)
	UpdateGroup(g models.Group) error
	DeleteGroup(g models.Group) error
	ListGroups() ([]models.Group, error)

	// Membership & pending sets
	AddMember(groupID, accountID string) (bool, error)
	RemoveMember(groupID, accountID string) (bool, error)
	IsMember(groupID, accountID string) (bool, error)
	Members(groupID string) ([]string, error)
	GroupsWhereMember(accountID string) ([]string, error)
	AddPending(groupID, accountID string) (bool, error)
	RemovePending(groupID, accountID string) (bool, error)
	IsPending(groupID, accountID string) (bool, error)
	PendingRequests(groupID string) ([]string, error)

	// Posts, likes, comments
	AddPost(post models.Post) error
	GetPost(id string) (models.Post, bool, error)
	DeletePost(post models.Post) error
	PostsByAuthor(accountID string) ([]models.Post, error)
	PostsByGroup(groupID string) ([]models.Post, error)
	AddLike(postID, accountID string) (bool, error)
	RemoveLike(postID, accountID string) (bool, error)
	Likes(postID string) ([]string, error)
	AddComment(c models.Comment) error
	Comments(postID string) ([]models.Comment, error)

	// Dashboard counters
	IncrTotal(name string, delta int64) error
	IncrPostsByDay(day string, delta int64) error
	IncrPostsByAuthor(authorID string, delta int64) error
	TotalCount(name string) (int64, error)
	PostsByDayCounts() (map[string]int64, error)
	PostsByAuthorCounts() (map[string]int64, error)

	Close()
}

// --- Store Implementation ---

type Store struct {
	Session SessionInterface
}

// New initializes Cassandra connection using config package.
func New() (StoreInterface, error) {
	cfg := config.Get()

	if err := ensureKeyspace(cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure keyspace: %w", err)
	}

	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout

	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.CassandraUsername,
			Password: cfg.CassandraPassword,
		}
	}

	if cfg.CassandraDC != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(cfg.CassandraDC)
	}

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	logg.Info("store", "Connected to Cassandra keyspace (host anonymized)")
	return &Store{Session: sess}, nil
}

// --- Ensure keyspace exists before migrations ---

func ensureKeyspace(cfg *config.Config) error {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Keyspace = "system"
	sess, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra system keyspace: %w", err)
	}
	defer sess.Close()

	query := fmt.Sprintf(`
        CREATE KEYSPACE IF NOT EXISTS %s
        WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1};
    `, cfg.CassandraKeyspace)

	if err := sess.Query(query).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}

	logg.Info("store", "Ensured Cassandra keyspace exists (keyspace name anonymized)")
	return nil
}

// --- Migration runner ---

func runMigrations(cfg *config.Config) error {
	migrationsPath := filepath.Join("./migrations/cassandra")
	sourceURL := fmt.Sprintf("file://%s", migrationsPath)
	dbURL := fmt.Sprintf(
		"cassandra://%s/%s?x-migrations-table=schema_migrations&x-multi-statement=true",
		cfg.CassandraHost, cfg.CassandraKeyspace,
	)

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logg.Info("store", "No new migrations to apply")
	} else {
		logg.Info("store", "Migrations applied successfully")
	}
	return nil
}

// Close gracefully closes Cassandra session.
func (s *Store) Close() {
	if s.Session != nil {
		s.Session.Close()
		logg.Info("store", "Cassandra session closed")
	}
}
