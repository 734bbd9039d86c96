package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"bookclub/internal/models"
	"bookclub/internal/storage"
)

// CommentService owns threaded comments scoped to a group.
//
// Removing a comment does not remove its replies; they are detached and
// become root comments of the same group.
type CommentService interface {
	Create(ctx context.Context, authorID uint, body string, groupID uint) (*models.Comment, error)
	Reply(ctx context.Context, authorID uint, body string, parentID, groupID uint) (*models.Comment, error)
	Remove(ctx context.Context, commentID, requesterID uint) error
	ListByGroup(ctx context.Context, groupID uint) ([]models.Comment, error)
	ListByUserInGroup(ctx context.Context, groupID, userID uint) ([]models.Comment, error)
}

type commentService struct {
	commentRepo storage.CommentRepository
	groupRepo   storage.GroupRepository
}

// NewCommentService creates a new CommentService instance.
func NewCommentService(commentRepo storage.CommentRepository, groupRepo storage.GroupRepository) CommentService {
	return &commentService{commentRepo: commentRepo, groupRepo: groupRepo}
}

func (s *commentService) Create(ctx context.Context, authorID uint, body string, groupID uint) (*models.Comment, error) {
	if err := s.checkAuthor(ctx, authorID, body, groupID); err != nil {
		return nil, err
	}

	comment := &models.Comment{AuthorID: authorID, GroupID: groupID, Body: body}
	if err := s.insert(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Reply never re-parents across groups: a parent from another group is NotFound.
func (s *commentService) Reply(ctx context.Context, authorID uint, body string, parentID, groupID uint) (*models.Comment, error) {
	if err := s.checkAuthor(ctx, authorID, body, groupID); err != nil {
		return nil, err
	}

	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, storeError(err, "父评论不存在", "", "获取父评论失败")
	}
	if parent.GroupID != groupID {
		return nil, newError(KindNotFound, "父评论不存在")
	}

	comment := &models.Comment{AuthorID: authorID, GroupID: groupID, Body: body, ParentID: &parent.ID}
	if err := s.insert(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) checkAuthor(ctx context.Context, authorID uint, body string, groupID uint) error {
	if strings.TrimSpace(body) == "" {
		return newError(KindInvalidRequest, "评论内容不能为空")
	}
	if _, err := s.groupRepo.GetGroupByID(ctx, groupID); err != nil {
		return storeError(err, "群组不存在", "", "获取群组失败")
	}
	if _, err := s.groupRepo.GetMember(ctx, groupID, authorID); err != nil {
		if storage.IsNotFound(err) {
			return newError(KindNotMember, "只有群组成员可以发表评论")
		}
		return storeError(err, "", "", "检查群组成员失败")
	}
	return nil
}

// insert re-checks membership in the same transaction as the insert; the
// author may have left or the group may have been deleted since checkAuthor.
func (s *commentService) insert(ctx context.Context, comment *models.Comment) error {
	err := s.commentRepo.CreateAsMember(ctx, comment)
	if errors.Is(err, storage.ErrNotGroupMember) {
		return newError(KindNotMember, "只有群组成员可以发表评论")
	}
	if err != nil {
		return storeError(err, "", "", "保存评论失败")
	}
	return nil
}

// Remove deletes a single comment. Only its author or the group's admin may do so.
func (s *commentService) Remove(ctx context.Context, commentID, requesterID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return storeError(err, "评论不存在", "", "获取评论失败")
	}

	if comment.AuthorID != requesterID {
		group, err := s.groupRepo.GetGroupByID(ctx, comment.GroupID)
		switch {
		case err == nil && group.AdminID == requesterID:
		case err == nil || storage.IsNotFound(err):
			return newError(KindNotAllowed, "只有作者或群组管理员可以删除评论")
		default:
			return storeError(err, "", "", "获取群组失败")
		}
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return storeError(err, "评论不存在", "", "删除评论失败")
	}
	log.Printf("Comment %d in group %d removed by user %d", commentID, comment.GroupID, requesterID)
	return nil
}

func (s *commentService) ListByGroup(ctx context.Context, groupID uint) ([]models.Comment, error) {
	comments, err := s.commentRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err, "", "", "获取群组评论失败")
	}
	return comments, nil
}

func (s *commentService) ListByUserInGroup(ctx context.Context, groupID, userID uint) ([]models.Comment, error) {
	comments, err := s.commentRepo.ListByUserInGroup(ctx, groupID, userID)
	if err != nil {
		return nil, storeError(err, "", "", "获取用户评论失败")
	}
	return comments, nil
}
