package database

import (
	"context"
	"testing"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	author := createTestUser(t, db, "author")
	item := createTestItem(t, db, owner.ID, "Grill", true)

	c := &models.Comment{Text: "worked great", ItemID: item.ID, AuthorID: author.ID}
	require.NoError(t, db.CreateComment(ctx, c))
	assert.NotZero(t, c.ID)
	assert.False(t, c.Created.IsZero())

	comments, err := db.GetCommentsByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "worked great", comments[0].Text)
	assert.Equal(t, "author", comments[0].AuthorName)

	none, err := db.GetCommentsByItem(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}
