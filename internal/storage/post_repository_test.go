package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bookclub/internal/models"
	"bookclub/internal/storage"
	"bookclub/internal/storage/storagetest"
)

func TestPostRepository_CRUD(t *testing.T) {
	db := storagetest.OpenDB(t)
	repo := storage.NewGormPostRepository(db)
	ctx := context.Background()

	first := &models.Post{AuthorID: 1, Content: "first"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &models.Post{AuthorID: 2, Content: "second"}))
	require.NoError(t, repo.Create(ctx, &models.Post{AuthorID: 1, Content: "third"}))

	all, err := repo.List(ctx, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Content)

	mine, err := repo.List(ctx, 1, 1, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "first", mine[0].Content)

	require.NoError(t, repo.UpdateContent(ctx, first.ID, "edited"))
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.ErrorIs(t, repo.UpdateContent(ctx, 999, "x"), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), gorm.ErrRecordNotFound)
	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
