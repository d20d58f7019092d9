// Package dbtest opens isolated in-memory sqlite databases carrying the
// application schema, for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/migrate"
)

// Open returns a fresh database per test; foreign keys are enforced.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(db.SQLiteDialector(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, migrate.ApplySQLite(context.Background(), conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// OpenClient wraps Open in a db.Client for services that need WithTx.
func OpenClient(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromGorm(conn), conn
}

func MustCreateUser(t *testing.T, tx *gorm.DB, username string) *models.User {
	t.Helper()
	if username == "" {
		username = "user_" + uuid.NewString()[:8]
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		IsActive:     true,
	}
	require.NoError(t, tx.Create(user).Error)
	return user
}

func MustCreateMovie(t *testing.T, tx *gorm.DB, title, price string) *models.Movie {
	t.Helper()
	movie := &models.Movie{
		ID:          uuid.New(),
		Title:       title,
		Price:       decimal.RequireFromString(price),
		Description: title + " description",
	}
	require.NoError(t, tx.Create(movie).Error)
	return movie
}

func MustCreateReview(t *testing.T, tx *gorm.DB, movieID, userID uuid.UUID, rating int, text string) *models.Review {
	t.Helper()
	review := &models.Review{
		ID:      uuid.New(),
		MovieID: movieID,
		UserID:  userID,
		Rating:  rating,
		Text:    text,
	}
	require.NoError(t, tx.Create(review).Error)
	return review
}

func MustCreatePetition(t *testing.T, tx *gorm.DB, creatorID uuid.UUID, title string) *models.Petition {
	t.Helper()
	petition := &models.Petition{
		ID:          uuid.New(),
		MovieTitle:  title,
		Description: "please add " + title,
		CreatorID:   creatorID,
	}
	require.NoError(t, tx.Create(petition).Error)
	return petition
}
