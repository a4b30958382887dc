package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xaenox/safeguard/internal/models"
)

//go:embed migrations/postgres/*.sql migrations/sqlite.sql
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the sqlite database file.
	Path string
}

// SQLStorage backs Storage with postgres or sqlite through sqlx.
type SQLStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSQLStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*SQLStorage, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch config.Driver {
	case DriverPostgres, "":
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)
		db, err = sqlx.ConnectContext(ctx, DriverPostgres, connStr)
		if err != nil {
			return nil, fmt.Errorf("error connecting to the database: %w", err)
		}
		if err := migratePostgres(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("error initializing database schema: %w", err)
		}
	case DriverSQLite:
		db, err = sqlx.ConnectContext(ctx, DriverSQLite, config.Path+"?_time_format=sqlite&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		// sqlite allows a single writer.
		db.SetMaxOpenConns(1)
		if err := initializeSQLiteSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("error initializing database schema: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	logger.Info("Database initialized", zap.String("driver", db.DriverName()))

	return &SQLStorage{db: db, logger: logger}, nil
}

func migratePostgres(db *sqlx.DB) error {
	src, err := iofs.New(migrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("error reading migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, DriverPostgres, driver)
	if err != nil {
		return fmt.Errorf("error creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func initializeSQLiteSchema(ctx context.Context, db *sqlx.DB) error {
	schema, err := migrations.ReadFile("migrations/sqlite.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// Message methods
func (s *SQLStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()

	query := s.db.Rebind(`
		INSERT INTO messages (id, room_id, author_id, chatbot_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.RoomID, msg.AuthorID, msg.ChatbotID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}

func (s *SQLStorage) GetMessage(ctx context.Context, scope AdminScope, id string) (*models.Message, error) {
	if err := scope.check(); err != nil {
		return nil, err
	}

	query := s.db.Rebind(`
		SELECT id, room_id, author_id, chatbot_id, role, content, created_at
		FROM messages
		WHERE id = ?`)

	var msg models.Message
	if err := s.db.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting message: %w", err)
	}
	return &msg, nil
}

func (s *SQLStorage) RecentMessages(ctx context.Context, scope AdminScope, q RecentQuery) ([]*models.Message, error) {
	if err := scope.check(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 1 << 30
	}

	query := s.db.Rebind(`
		SELECT id, room_id, author_id, chatbot_id, role, content, created_at
		FROM messages
		WHERE room_id = ? AND author_id = ? AND chatbot_id = ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`)

	var out []*models.Message
	if err := s.db.SelectContext(ctx, &out, query,
		q.RoomID, q.AuthorID, q.ChatbotID, q.Before.UTC(), limit); err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	return out, nil
}

// Profile methods
func (s *SQLStorage) SaveProfile(ctx context.Context, p *models.Profile) error {
	query := s.db.Rebind(`
		INSERT INTO profiles (id, email, display_name, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			role = excluded.role`)

	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Email, p.DisplayName, p.Role); err != nil {
		return fmt.Errorf("error saving profile: %w", err)
	}
	return nil
}

func (s *SQLStorage) GetProfile(ctx context.Context, scope AdminScope, id string) (*models.Profile, error) {
	if err := scope.check(); err != nil {
		return nil, err
	}

	query := s.db.Rebind(`SELECT id, email, display_name, role FROM profiles WHERE id = ?`)

	var p models.Profile
	if err := s.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting profile: %w", err)
	}
	return &p, nil
}

// Flag methods
const flagColumns = `flag_id, message_id, student_id, teacher_id, room_id, concern_type, concern_level,
	analysis_explanation, status, notes, created_at, reviewed_at`

// InsertFlag relies on the unique message_id constraint, so concurrent
// inserts for one message yield exactly one row.
func (s *SQLStorage) InsertFlag(ctx context.Context, scope AdminScope, flag *models.Flag) (string, error) {
	if err := scope.check(); err != nil {
		return "", err
	}

	if flag.Status == "" {
		flag.Status = models.FlagPending
	}
	id := uuid.New().String()
	createdAt := time.Now().UTC()

	query := s.db.Rebind(`
		INSERT INTO flags (flag_id, message_id, student_id, teacher_id, room_id, concern_type,
			concern_level, analysis_explanation, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING flag_id`)

	var inserted string
	err := s.db.QueryRowxContext(ctx, query,
		id, flag.MessageID, flag.StudentID, flag.TeacherID, flag.RoomID, flag.ConcernType,
		flag.ConcernLevel, flag.AnalysisExplanation, flag.Status, flag.Notes, createdAt,
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDuplicateFlag
		}
		return "", fmt.Errorf("error creating flag: %w", err)
	}

	flag.ID = inserted
	flag.CreatedAt = createdAt

	s.logger.Info("Flag inserted with elevated access",
		zap.String("actor", scope.Actor()),
		zap.String("flag_id", flag.ID),
		zap.String("message_id", flag.MessageID))

	return flag.ID, nil
}

func (s *SQLStorage) GetFlag(ctx context.Context, id string) (*models.Flag, error) {
	query := s.db.Rebind(`SELECT ` + flagColumns + ` FROM flags WHERE flag_id = ?`)

	var f models.Flag
	if err := s.db.GetContext(ctx, &f, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting flag: %w", err)
	}
	return &f, nil
}

func (s *SQLStorage) ListFlags(ctx context.Context, filter FlagFilter) ([]*models.Flag, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.TeacherID != "" {
		where = append(where, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + flagColumns + ` FROM flags`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	out := make([]*models.Flag, 0)
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error querying flags: %w", err)
	}
	return out, nil
}

func (s *SQLStorage) ReviewFlag(ctx context.Context, id string, status models.FlagStatus, notes string) (*models.Flag, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	query := s.db.Rebind(`UPDATE flags SET status = ?, notes = ?, reviewed_at = ? WHERE flag_id = ?`)

	res, err := s.db.ExecContext(ctx, query, status, notes, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("error updating flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error updating flag: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	return s.GetFlag(ctx, id)
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
