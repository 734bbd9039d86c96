package services

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"bookclub/internal/models"
	"bookclub/internal/storage"
)

// FriendService owns friend requests and friendship edges.
//
// A request lives only while pending: accepting, rejecting or withdrawing it
// deletes the row, and accepting also creates the edge in the same transaction.
type FriendService interface {
	SendRequest(ctx context.Context, from, to uint) (*models.FriendRequest, error)
	WithdrawRequest(ctx context.Context, from, to uint) error
	AcceptRequest(ctx context.Context, from, to uint) error
	RejectRequest(ctx context.Context, from, to uint) error
	RemoveFriend(ctx context.Context, a, b uint) error
	ListFriends(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
	ListIncomingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error)
	ListOutgoingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error)
}

type friendService struct {
	db             *gorm.DB // 用于事务
	userRepo       storage.UserRepository
	requestRepo    storage.FriendRequestRepository
	friendshipRepo storage.FriendshipRepository
	events         EventPublisher
}

// NewFriendService creates a new FriendService instance.
func NewFriendService(
	db *gorm.DB,
	userRepo storage.UserRepository,
	requestRepo storage.FriendRequestRepository,
	friendshipRepo storage.FriendshipRepository,
	events EventPublisher,
) FriendService {
	return &friendService{
		db:             db,
		userRepo:       userRepo,
		requestRepo:    requestRepo,
		friendshipRepo: friendshipRepo,
		events:         events,
	}
}

// SendRequest validates and stores a pending request from one user to another.
func (s *friendService) SendRequest(ctx context.Context, from, to uint) (*models.FriendRequest, error) {
	if from == to {
		return nil, newError(KindInvalidRequest, "不能添加自己为好友")
	}

	if _, err := s.userRepo.GetByID(ctx, to); err != nil {
		return nil, storeError(err, "接收用户不存在", "", "检查接收用户时出错")
	}

	areFriends, err := s.friendshipRepo.AreUsersFriends(ctx, from, to)
	if err != nil {
		return nil, storeError(err, "", "", "检查好友关系时出错")
	}
	if areFriends {
		return nil, newError(KindAlreadyFriends, "你们已经是好友了")
	}

	// Either direction counts.
	existing, err := s.findPendingBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(KindDuplicatePending, "已存在待处理的好友请求")
	}

	request := &models.FriendRequest{
		RequesterUserID: from,
		RecipientUserID: to,
		Status:          models.FriendRequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		// A concurrent send for the same pair lost the race on the pair key.
		return nil, storeError(err, "", KindDuplicatePending, "保存好友请求失败")
	}

	log.Printf("Friend request %d created: %d -> %d", request.ID, from, to)
	publish(ctx, s.events, Event{
		Type:          EventFriendRequestSent,
		ActorID:       from,
		TargetUserIDs: []uint{to},
	})
	return request, nil
}

func (s *friendService) findPendingBetween(ctx context.Context, a, b uint) (*models.FriendRequest, error) {
	existing, err := s.requestRepo.FindPendingBetween(ctx, a, b)
	if err != nil {
		return nil, storeError(err, "", "", "检查现有请求时出错")
	}
	return existing, nil
}

// WithdrawRequest deletes a pending request; only its sender can do that, so
// the lookup is keyed by (from, to).
func (s *friendService) WithdrawRequest(ctx context.Context, from, to uint) error {
	request, err := s.requestRepo.FindPending(ctx, from, to)
	if err != nil {
		return storeError(err, "好友请求不存在", "", "检索好友请求失败")
	}
	if err := s.requestRepo.Delete(ctx, request.ID); err != nil {
		return storeError(err, "好友请求不存在", "", "撤回好友请求失败")
	}

	log.Printf("Friend request %d withdrawn by user %d", request.ID, from)
	publish(ctx, s.events, Event{
		Type:          EventFriendRequestWithdrawn,
		ActorID:       from,
		TargetUserIDs: []uint{to},
	})
	return nil
}

// AcceptRequest is invoked by the recipient to. The request is deleted and
// the edge created in a single transaction.
func (s *friendService) AcceptRequest(ctx context.Context, from, to uint) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRequestRepo := storage.NewGormFriendRequestRepository(tx)
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)

		request, err := txRequestRepo.FindPending(ctx, from, to)
		if err != nil {
			return storeError(err, "好友请求不存在", "", "检索好友请求失败")
		}

		if err := txRequestRepo.Delete(ctx, request.ID); err != nil {
			return storeError(err, "好友请求不存在", "", "删除好友请求失败")
		}

		friendship := &models.Friendship{UserID1: from, UserID2: to}
		if err := txFriendshipRepo.Create(ctx, friendship); err != nil {
			return storeError(err, "", KindAlreadyFriends, "创建好友关系失败")
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	log.Printf("Friend request %d -> %d accepted, friendship created.", from, to)
	publish(ctx, s.events, Event{
		Type:          EventFriendRequestAccepted,
		ActorID:       to,
		TargetUserIDs: []uint{from},
	})
	return nil
}

// RejectRequest is invoked by the recipient to; the request is deleted and no edge is created.
func (s *friendService) RejectRequest(ctx context.Context, from, to uint) error {
	request, err := s.requestRepo.FindPending(ctx, from, to)
	if err != nil {
		return storeError(err, "好友请求不存在", "", "检索好友请求失败")
	}
	if err := s.requestRepo.Delete(ctx, request.ID); err != nil {
		return storeError(err, "好友请求不存在", "", "拒绝好友请求失败")
	}

	log.Printf("Friend request %d rejected by user %d.", request.ID, to)
	publish(ctx, s.events, Event{
		Type:          EventFriendRequestRejected,
		ActorID:       to,
		TargetUserIDs: []uint{from},
	})
	return nil
}

// RemoveFriend deletes the edge between a and b. Removing a missing edge is NotFound.
func (s *friendService) RemoveFriend(ctx context.Context, a, b uint) error {
	if err := s.friendshipRepo.Delete(ctx, a, b); err != nil {
		return storeError(err, "好友关系不存在", "", "删除好友关系失败")
	}
	publish(ctx, s.events, Event{
		Type:          EventFriendRemoved,
		ActorID:       a,
		TargetUserIDs: []uint{b},
	})
	return nil
}

// ListFriends retrieves the basic info for all friends of the given user.
func (s *friendService) ListFriends(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, storeError(err, "", "", "获取好友列表失败")
	}
	if len(friendIDs) == 0 {
		return []*models.UserBasicInfo{}, nil
	}

	friendsInfo, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, friendIDs)
	if err != nil {
		return nil, storeError(err, "", "", "获取好友信息失败")
	}
	return friendsInfo, nil
}

// ListIncomingRequests returns pending requests sent to userID, with the sender attached.
func (s *friendService) ListIncomingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error) {
	requests, err := s.requestRepo.ListIncoming(ctx, userID)
	if err != nil {
		return nil, storeError(err, "", "", "获取待处理好友请求失败")
	}
	return s.withUsers(ctx, requests, func(r models.FriendRequest) uint { return r.RequesterUserID })
}

// ListOutgoingRequests returns pending requests sent by userID, with the recipient attached.
func (s *friendService) ListOutgoingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error) {
	requests, err := s.requestRepo.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, storeError(err, "", "", "获取已发送好友请求失败")
	}
	return s.withUsers(ctx, requests, func(r models.FriendRequest) uint { return r.RecipientUserID })
}

func (s *friendService) withUsers(ctx context.Context, requests []models.FriendRequest, other func(models.FriendRequest) uint) ([]*models.FriendRequestWithUser, error) {
	result := make([]*models.FriendRequestWithUser, 0, len(requests))
	for _, req := range requests {
		info, err := s.userRepo.GetBasicInfoByID(ctx, other(req))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("Skipping friend request %d: user %d no longer exists", req.ID, other(req))
				continue
			}
			return nil, storeError(err, "", "", "获取用户信息失败")
		}
		result = append(result, &models.FriendRequestWithUser{FriendRequest: req, User: info})
	}
	return result, nil
}
