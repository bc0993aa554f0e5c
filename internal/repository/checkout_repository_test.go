package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"techstore-api/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTake_ReturnsAndDeletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCheckoutRepository(db)
	id := uuid.New()
	userID := uuid.New()
	items := []domain.CheckoutItem{{ProductID: uuid.New(), Quantity: 2}}
	itemsJSON, _ := json.Marshal(items)

	mock.ExpectQuery("DELETE FROM checkout_handoffs").
		WithArgs(id, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "items", "expires_at", "created_at"}).
			AddRow(id, userID, itemsJSON, time.Now().Add(10*time.Minute), time.Now()))

	handoff, err := repo.Take(context.Background(), id, userID)
	require.NoError(t, err)
	require.Len(t, handoff.Items, 1)
	assert.Equal(t, items[0].ProductID, handoff.Items[0].ProductID)
	assert.Equal(t, 2, handoff.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTake_SecondReadFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCheckoutRepository(db)
	id := uuid.New()
	userID := uuid.New()
	itemsJSON, _ := json.Marshal([]domain.CheckoutItem{{ProductID: uuid.New(), Quantity: 1}})

	mock.ExpectQuery("DELETE FROM checkout_handoffs").
		WithArgs(id, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "items", "expires_at", "created_at"}).
			AddRow(id, userID, itemsJSON, time.Now().Add(10*time.Minute), time.Now()))
	// The row is gone after the first take.
	mock.ExpectQuery("DELETE FROM checkout_handoffs").
		WithArgs(id, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "items", "expires_at", "created_at"}))

	_, err = repo.Take(context.Background(), id, userID)
	require.NoError(t, err)

	_, err = repo.Take(context.Background(), id, userID)
	assert.ErrorIs(t, err, ErrHandoffNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTake_WrongUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCheckoutRepository(db)
	id := uuid.New()
	otherUser := uuid.New()

	mock.ExpectQuery("DELETE FROM checkout_handoffs").
		WithArgs(id, otherUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "items", "expires_at", "created_at"}))

	_, err = repo.Take(context.Background(), id, otherUser)
	assert.ErrorIs(t, err, ErrHandoffNotFound)
}

func TestDeleteExpired_ReportsPurgedCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCheckoutRepository(db)
	now := time.Now()

	mock.ExpectExec("DELETE FROM checkout_handoffs WHERE expires_at <= \\$1").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPut_SerializesItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCheckoutRepository(db)
	handoff := &domain.CheckoutHandoff{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Items:     []domain.CheckoutItem{{ProductID: uuid.New(), Quantity: 3}},
		ExpiresAt: time.Now().Add(15 * time.Minute),
		CreatedAt: time.Now(),
	}

	mock.ExpectExec("INSERT INTO checkout_handoffs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Put(context.Background(), handoff))
	assert.NoError(t, mock.ExpectationsWereMet())
}
