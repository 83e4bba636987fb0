package rdb

import (
	"context"
	"errors"
	"io/fs"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestLikeRepositoryExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db, "node-a")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `likes` WHERE user_id = ? AND post_id = ?")).
		WithArgs("u1", int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	ok, err := repo.Exists(context.Background(), "u1", 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryCountByPost(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `likes` WHERE post_id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `likes` WHERE post_id = ?")).
		WithArgs(int64(7)).
		WillReturnError(errors.New("connection refused"))

	n, err := repo.CountByPost(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, err = repo.CountByPost(context.Background(), 7)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryInsertBatchIgnoresDuplicates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db, "node-a")
	now := time.Now()

	mock.ExpectExec("INSERT INTO `likes` .* ON DUPLICATE KEY UPDATE").
		WithArgs("u1", int64(1), sqlmock.AnyArg(), "u2", int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertBatch(context.Background(), []domain.Like{
		{UserID: "u1", PostID: 1, CreatedAt: now},
		{UserID: "u2", PostID: 2, CreatedAt: now},
	})
	require.NoError(t, err)
	require.NoError(t, repo.InsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db, "")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `likes` WHERE user_id = ? AND post_id = ?")).
		WithArgs("u1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), domain.Like{UserID: "u1", PostID: 1}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func postRows() *sqlmock.Rows {
	now := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "title", "category", "image_url", "user_id", "updated_at", "created_at"}).
		AddRow(2, "Night", "photo", "https://img/2.png", "a", now, now).
		AddRow(1, "Day", "photo", "https://img/1.png", "b", now, now.Add(-time.Hour))
}

func TestPostRepositoryFetch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostDBRepository(db)
	cursor := repository.EncodeCursor(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery("SELECT \\* FROM `posts` WHERE created_at < \\? AND category = \\? ORDER BY created_at DESC LIMIT").
		WillReturnRows(postRows())

	posts, err := repo.Fetch(context.Background(), "photo", cursor, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.EqualValues(t, 2, posts[0].ID)
	assert.Equal(t, "a", posts[0].User.ID)
	assert.Equal(t, "photo", posts[1].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryFetchBadCursor(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := NewPostDBRepository(db).Fetch(context.Background(), "", "not-a-cursor", 10)
	assert.ErrorIs(t, err, domain.ErrBadParamInput)
}

func TestPostRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostDBRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `posts` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostRepositoryFetchIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostDBRepository(db)

	mock.ExpectQuery("SELECT `id` FROM `posts` WHERE id > \\? ORDER BY id LIMIT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11).AddRow(12))

	ids, err := repo.FetchIDs(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, ids)
}

func TestCommentRepositoryCountByPosts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery("SELECT post_id, COUNT\\(\\*\\) AS total FROM `comments` WHERE post_id IN \\(\\?,\\?,\\?\\) GROUP BY").
		WithArgs(int64(1), int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "total"}).AddRow(1, 4).AddRow(3, 1))

	counts, err := repo.CountByPosts(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{1: 4, 3: 1}, counts)

	empty, err := repo.CountByPosts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryStore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectExec("INSERT INTO `comments`").
		WillReturnResult(sqlmock.NewResult(11, 1))

	c := &domain.Comment{PostID: 1, UserID: "u1", Content: "lovely colours"}
	require.NoError(t, repo.Store(context.Background(), c))
	assert.EqualValues(t, 11, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCommentRepositoryDeleteOthersComment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `comments` WHERE id = ? AND user_id = ?")).
		WithArgs(int64(5), "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 5, "intruder"), domain.ErrForbidden)
}

func TestUserRepositoryGetByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id IN \\(\\?,\\?\\)").
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username"}).
			AddRow("a", "Ann", "ann").
			AddRow("b", "Bo", "bo"))

	users, err := repo.GetByIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ann", users[0].Username)

	none, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestConfigDSN(t *testing.T) {
	c := Config{Host: "db", Port: "3306", User: "app", Pass: "secret", Name: "artfeed"}
	dsn := c.MySQLDSN()
	assert.Contains(t, dsn, "app:secret@tcp(db:3306)/artfeed?")
	assert.Contains(t, dsn, "parseTime=true")

	c.Port = "5432"
	assert.Equal(t, "postgres://app:secret@db:5432/artfeed?sslmode=disable", c.PostgresDSN())

	c.Dialect = "oracle"
	_, err := c.dialector()
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	for dialect, want := range map[string]int{DialectMySQL: 1, DialectPostgres: 2} {
		files, err := fs.Glob(migrations, "migrations/"+dialect+"/*.sql")
		require.NoError(t, err)
		assert.Len(t, files, want, dialect)
	}
}
