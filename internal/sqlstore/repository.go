package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/blackmichael/swapbot/internal/domain"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and its placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS misc (k TEXT PRIMARY KEY, v TEXT)`,
	`CREATE TABLE IF NOT EXISTS vouches (
		user1 TEXT,
		user2 TEXT,
		permalink TEXT UNIQUE,
		"timestamp" TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		"user" TEXT,
		id TEXT PRIMARY KEY,
		title TEXT,
		body TEXT,
		permalink TEXT UNIQUE,
		"timestamp" TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Repository implements domain.PostRepository, domain.VouchRepository and
// domain.StateRepository on a SQL database.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ domain.PostRepository  = (*Repository)(nil)
	_ domain.VouchRepository = (*Repository)(nil)
	_ domain.StateRepository = (*Repository)(nil)
)

// Open connects to the database at dsn using dialect's driver, verifies the
// connection, and returns a new Repository. The caller should call Close when
// the repository is no longer needed.
func Open(dialect Dialect, dsn string) (*Repository, error) {
	switch dialect {
	case SQLite, Postgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == SQLite {
		// SQLite allows one writer; a single connection also keeps an
		// in-memory database alive for the life of the pool.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewRepository(db, dialect), nil
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// InitSchema creates the tables if they do not exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// PostExists reports whether a post id has been recorded.
func (r *Repository) PostExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT EXISTS(SELECT 1 FROM posts WHERE id = ?)`), id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query post %s: %w", id, err)
	}
	return exists, nil
}

// CreatePost inserts a post. A post with a known id or permalink is ignored.
func (r *Repository) CreatePost(ctx context.Context, post *domain.TrackedPost) error {
	query := `
		INSERT INTO posts ("user", id, title, body, permalink, "timestamp")
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		post.User,
		post.ID,
		post.Title,
		post.Body,
		post.Permalink,
		post.Timestamp,
	)
	return err
}

// PostsByUser returns a user's posts, newest first.
func (r *Repository) PostsByUser(ctx context.Context, user string) ([]domain.TrackedPost, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT "user", id, title, body, permalink, "timestamp"
		FROM posts
		WHERE "user" = ?
		ORDER BY "timestamp" DESC`),
		user,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts for %s: %w", user, err)
	}
	defer rows.Close()

	var posts []domain.TrackedPost
	for rows.Next() {
		var (
			p           domain.TrackedPost
			title, body sql.NullString
		)
		if err := rows.Scan(&p.User, &p.ID, &title, &body, &p.Permalink, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Title, p.Body = title.String, body.String
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// InsertVouch inserts v unless its permalink is already recorded.
func (r *Repository) InsertVouch(ctx context.Context, v *domain.Vouch) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO vouches (user1, user2, permalink, "timestamp")
		VALUES (?, ?, ?, ?)
		ON CONFLICT (permalink) DO NOTHING`),
		v.User1, v.User2, v.Permalink, v.Timestamp,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CountVouches returns the number of vouches naming user.
func (r *Repository) CountVouches(ctx context.Context, user string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT COUNT(*) FROM vouches WHERE user1 = ? OR user2 = ?`), user, user,
	).Scan(&n)
	return n, err
}

// VouchesByUser returns the vouches naming user, newest first.
func (r *Repository) VouchesByUser(ctx context.Context, user string) ([]domain.Vouch, error) {
	return r.queryVouches(ctx, `
		SELECT user1, user2, permalink, "timestamp"
		FROM vouches
		WHERE user1 = ? OR user2 = ?
		ORDER BY "timestamp" DESC`,
		user, user,
	)
}

// ListVouches returns every vouch, newest first.
func (r *Repository) ListVouches(ctx context.Context) ([]domain.Vouch, error) {
	return r.queryVouches(ctx, `
		SELECT user1, user2, permalink, "timestamp"
		FROM vouches
		ORDER BY "timestamp" DESC`)
}

func (r *Repository) queryVouches(ctx context.Context, query string, args ...any) ([]domain.Vouch, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query vouches: %w", err)
	}
	defer rows.Close()

	var vouches []domain.Vouch
	for rows.Next() {
		var v domain.Vouch
		if err := rows.Scan(&v.User1, &v.User2, &v.Permalink, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan vouch: %w", err)
		}
		vouches = append(vouches, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vouches: %w", err)
	}
	return vouches, nil
}

// GetState retrieves a value from the misc table.
func (r *Repository) GetState(ctx context.Context, key string) (string, error) {
	var v sql.NullString
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT v FROM misc WHERE k = ?`), key,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v.String, err
}

// SetState upserts a value in the misc table.
func (r *Repository) SetState(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO misc (k, v)
		VALUES (?, ?)
		ON CONFLICT (k) DO UPDATE SET v = excluded.v`),
		key, value,
	)
	return err
}

// rebind rewrites "?" placeholders to "$n" for Postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
