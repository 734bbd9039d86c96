package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bookclub/internal/models"
)

// FriendRequestRepository defines the interface for friend request data operations.
// Only pending requests are stored.
type FriendRequestRepository interface {
	Create(ctx context.Context, request *models.FriendRequest) error
	// FindPending returns the pending request sent by from to to, or gorm.ErrRecordNotFound.
	FindPending(ctx context.Context, from, to uint) (*models.FriendRequest, error)
	// FindPendingBetween looks in both directions and returns nil, nil when there is none.
	FindPendingBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error)
	Delete(ctx context.Context, requestID uint) error
	ListIncoming(ctx context.Context, recipientUserID uint) ([]models.FriendRequest, error)
	ListOutgoing(ctx context.Context, requesterUserID uint) ([]models.FriendRequest, error)
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

// Create inserts a pending request. The unique PairKey turns a concurrent
// duplicate, in either direction, into gorm.ErrDuplicatedKey.
func (r *gormFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	request.PairKey = models.PairKeyFor(request.RequesterUserID, request.RecipientUserID)
	if request.Status == "" {
		request.Status = models.FriendRequestStatusPending
	}
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *gormFriendRequestRepository) FindPending(ctx context.Context, from, to uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("requester_user_id = ? AND recipient_user_id = ?", from, to).
		Where("status = ?", models.FriendRequestStatusPending).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) FindPendingBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", models.PairKeyFor(userID1, userID2)).
		Where("status = ?", models.FriendRequestStatusPending).
		First(&request).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No pending request found is not an error in this context
		}
		return nil, err
	}
	return &request, nil
}

// Delete removes the request row. A missing row is reported as gorm.ErrRecordNotFound.
func (r *gormFriendRequestRepository) Delete(ctx context.Context, requestID uint) error {
	result := r.db.WithContext(ctx).Delete(&models.FriendRequest{}, requestID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormFriendRequestRepository) ListIncoming(ctx context.Context, recipientUserID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("recipient_user_id = ? AND status = ?", recipientUserID, models.FriendRequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *gormFriendRequestRepository) ListOutgoing(ctx context.Context, requesterUserID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("requester_user_id = ? AND status = ?", requesterUserID, models.FriendRequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}
