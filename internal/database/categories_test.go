package database

import (
	"context"
	"testing"

	"hoteldesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryCRUD(t *testing.T) {
	db := setupBookingsDB(t)
	ctx := context.Background()

	deluxe := &models.RoomCategory{Name: "Deluxe", Description: "City view", Status: models.CategoryActive}
	suite := &models.RoomCategory{Name: "Suite", Status: models.CategoryActive}
	require.NoError(t, db.CreateCategory(ctx, suite))
	require.NoError(t, db.CreateCategory(ctx, deluxe))

	err := db.CreateCategory(ctx, &models.RoomCategory{Name: "Deluxe", Status: models.CategoryActive})
	assert.ErrorIs(t, err, ErrDuplicate)

	list, err := db.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Deluxe", list[0].Name)

	deluxe.Status = models.CategoryInactive
	require.NoError(t, db.UpdateCategory(ctx, deluxe))
	got, err := db.GetCategory(ctx, deluxe.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryInactive, got.Status)

	_, err = db.GetCategory(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteCategory(ctx, 999), ErrNotFound)
}

func TestDeleteCategoryInUse(t *testing.T) {
	db := setupBookingsDB(t)
	ctx := context.Background()

	c := &models.RoomCategory{Name: "Deluxe", Status: models.CategoryActive}
	require.NoError(t, db.CreateCategory(ctx, c))

	b := newTestBooking(1)
	b.CategoryID = c.ID
	require.NoError(t, db.InsertBooking(ctx, b))

	assert.ErrorIs(t, db.DeleteCategory(ctx, c.ID), ErrInUse)

	// soft-deleted bookings no longer hold the category
	require.NoError(t, db.SoftDeleteBooking(ctx, b.ID, "admin"))
	require.NoError(t, db.DeleteCategory(ctx, c.ID))
	_, err := db.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
