package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"posts-api/models"
)

var ErrPostNotFound = errors.New("post not found")

// PostStore is the persistence boundary of the posts resource.
type PostStore interface {
	CreatePost(ctx context.Context, post models.Post) error
	GetPost(ctx context.Context, id string) (models.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error)
	DeleteAllPosts(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// SQLPostStore keeps posts in a relational table through database/sql.
type SQLPostStore struct {
	db     *sql.DB
	driver string
}

func NewSQLPostStore(conn *sql.DB, driver string) *SQLPostStore {
	return &SQLPostStore{db: conn, driver: driver}
}

// placeholder returns the n-th (1-based) bind parameter for the driver.
func (s *SQLPostStore) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

const postColumns = "id, route_id, user_id, expire_at, created_at"

func (s *SQLPostStore) CreatePost(ctx context.Context, post models.Post) error {
	query := "INSERT INTO posts (" + postColumns + ") VALUES (" +
		s.placeholder(1) + ", " + s.placeholder(2) + ", " + s.placeholder(3) + ", " +
		s.placeholder(4) + ", " + s.placeholder(5) + ")"

	_, err := s.db.ExecContext(ctx, query,
		post.ID, post.RouteID, post.UserID, post.ExpireAt.UTC(), post.CreatedAt.UTC())
	if err != nil {
		return errors.Wrapf(err, "error inserting post %s", post.ID)
	}
	return nil
}

func (s *SQLPostStore) GetPost(ctx context.Context, id string) (models.Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE id = " + s.placeholder(1)

	post, err := scanPost(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, errors.Wrapf(ErrPostNotFound, "post %s", id)
		}
		return models.Post{}, errors.Wrap(err, "error querying database")
	}
	return post, nil
}

func (s *SQLPostStore) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = "+s.placeholder(1), id)
	if err != nil {
		return errors.Wrapf(err, "error deleting post %s", id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "error reading affected rows")
	}
	if affected == 0 {
		return errors.Wrapf(ErrPostNotFound, "post %s", id)
	}
	return nil
}

func (s *SQLPostStore) ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	var (
		conditions []string
		args       []any
	)
	addCondition := func(expr string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, expr+" "+s.placeholder(len(args)))
	}

	if filter.RouteID != "" {
		addCondition("route_id =", filter.RouteID)
	}
	if filter.UserID != "" {
		addCondition("user_id =", filter.UserID)
	}
	if filter.Expired != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		if *filter.Expired {
			addCondition("expire_at <", now.UTC())
		} else {
			addCondition("expire_at >=", now.UTC())
		}
	}

	query := "SELECT " + postColumns + " FROM posts"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error querying database")
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating over rows")
	}

	return posts, nil
}

func (s *SQLPostStore) DeleteAllPosts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM posts")
	if err != nil {
		return 0, errors.Wrap(err, "error deleting posts")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "error reading affected rows")
	}
	return affected, nil
}

func (s *SQLPostStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var post models.Post
	if err := row.Scan(&post.ID, &post.RouteID, &post.UserID, &post.ExpireAt, &post.CreatedAt); err != nil {
		return models.Post{}, err
	}
	post.ExpireAt = post.ExpireAt.UTC()
	post.CreatedAt = post.CreatedAt.UTC()
	return post, nil
}
