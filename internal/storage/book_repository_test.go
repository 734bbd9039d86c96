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

func TestBookRepository(t *testing.T) {
	db := storagetest.OpenDB(t)
	repo := storage.NewGormBookRepository(db)
	ctx := context.Background()

	dune := &models.Book{Title: "Dune", Author: "Frank Herbert", Review: 5}
	require.NoError(t, repo.Create(ctx, dune))
	assert.ErrorIs(t, repo.Create(ctx, &models.Book{Title: "Dune"}), gorm.ErrDuplicatedKey)
	require.NoError(t, repo.Create(ctx, &models.Book{Title: "Emma", Author: "Jane Austen"}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	title, err := repo.TitleAt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Emma", title)

	require.NoError(t, repo.AddGroup(ctx, &models.BookGroup{BookID: dune.ID, GroupID: 5}))
	assert.ErrorIs(t, repo.AddGroup(ctx, &models.BookGroup{BookID: dune.ID, GroupID: 5}), gorm.ErrDuplicatedKey)

	got, err := repo.GetByTitle(ctx, "Dune")
	require.NoError(t, err)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, uint(5), got.Groups[0].GroupID)

	removed, err := repo.DetachGroup(ctx, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.ErrorIs(t, repo.RemoveGroup(ctx, dune.ID, 5), gorm.ErrRecordNotFound)
}
