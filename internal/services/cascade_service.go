package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bookclub/internal/models"
	"bookclub/internal/storage"
)

// CascadeService sequences operations that span the group roster and the
// comment graph. Every operation deletes comments first and only then
// mutates the group, so an interruption leaves a group whose comments are
// partly gone, never comments pointing at a missing group or membership.
// Each step is safe to repeat. Comments written while a cascade runs make the
// final mutation fail; the cascade then enumerates again, a bounded number of
// times.
type CascadeService interface {
	UserLeavesGroup(ctx context.Context, userID uint, groupName string) error
	AdminRemovesUser(ctx context.Context, adminID, targetID uint, groupName string) error
	DeleteGroupCascade(ctx context.Context, adminID uint, groupName string) error
	// ResumeGroupDeletion finishes an interrupted DeleteGroupCascade acting as the group's admin.
	ResumeGroupDeletion(ctx context.Context, groupName string) error
	// DeleteAccount leaves every group the user belongs to, then removes the
	// user with their friend edges, pending requests, reading lists and posts.
	// A user who still administers a group is refused with AdminCannotLeave.
	DeleteAccount(ctx context.Context, userID uint) error
}

// cascadeRounds bounds how often one cascade re-enumerates comments.
const cascadeRounds = 3

// GroupLinkDetacher removes references to a group held outside the roster.
type GroupLinkDetacher interface {
	DetachGroup(ctx context.Context, groupID uint) error
}

type cascadeService struct {
	groups   GroupService
	comments CommentService
	links    GroupLinkDetacher
	users    storage.UserRepository
}

// NewCascadeService creates a new CascadeService. links may be nil.
func NewCascadeService(groups GroupService, comments CommentService, links GroupLinkDetacher, users storage.UserRepository) CascadeService {
	return &cascadeService{groups: groups, comments: comments, links: links, users: users}
}

func (s *cascadeService) UserLeavesGroup(ctx context.Context, userID uint, groupName string) error {
	group, err := s.groups.GetGroup(ctx, groupName)
	if err != nil {
		return err
	}
	if err := s.checkRemovable(ctx, group, userID); err != nil {
		return err
	}
	if group.AdminID == userID {
		return newError(KindAdminCannotLeave, "群主需要先转让群主身份才能离开群组")
	}

	return untilClean(func() error {
		comments, err := s.comments.ListByUserInGroup(ctx, group.ID, userID)
		if err != nil {
			return err
		}
		if err := s.removeComments(ctx, comments, userID); err != nil {
			return err
		}
		return s.groups.Leave(ctx, userID, groupName)
	})
}

func (s *cascadeService) AdminRemovesUser(ctx context.Context, adminID, targetID uint, groupName string) error {
	group, err := s.groups.GetGroup(ctx, groupName)
	if err != nil {
		return err
	}
	// Authorization comes before any deletion.
	if group.AdminID != adminID {
		return newError(KindNotAllowed, "只有群组管理员可以移除成员")
	}
	if targetID == group.AdminID {
		return newError(KindCannotRemoveSelf, "管理员不能移除自己")
	}
	if err := s.checkRemovable(ctx, group, targetID); err != nil {
		return err
	}

	return untilClean(func() error {
		comments, err := s.comments.ListByUserInGroup(ctx, group.ID, targetID)
		if err != nil {
			return err
		}
		if err := s.removeComments(ctx, comments, adminID); err != nil {
			return err
		}
		return s.groups.RemoveOtherUser(ctx, adminID, targetID, groupName)
	})
}

func (s *cascadeService) DeleteGroupCascade(ctx context.Context, adminID uint, groupName string) error {
	group, err := s.groups.GetGroup(ctx, groupName)
	if err != nil {
		return err
	}
	if group.AdminID != adminID {
		return newError(KindNotAllowed, "只有群组管理员可以删除群组")
	}
	return s.deleteGroup(ctx, group)
}

func (s *cascadeService) ResumeGroupDeletion(ctx context.Context, groupName string) error {
	group, err := s.groups.GetGroup(ctx, groupName)
	if err != nil {
		return err
	}
	log.Printf("Resuming deletion of group %q (%d)", group.Name, group.ID)
	return s.deleteGroup(ctx, group)
}

func (s *cascadeService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return storeError(err, "用户不存在", "", "获取用户失败")
	}

	groups, err := s.groups.ListUserGroups(ctx, userID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.AdminID == userID {
			return newError(KindAdminCannotLeave, fmt.Sprintf("请先转让或删除群组 %q", g.Name))
		}
	}
	for _, g := range groups {
		err := s.UserLeavesGroup(ctx, userID, g.Name)
		if err != nil && !errors.Is(err, ErrNotMember) && !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	err = s.users.DeleteAccount(ctx, userID)
	if errors.Is(err, storage.ErrUserHasMemberships) {
		// 退出群组之后又加入了新群组
		return wrapError(KindPartialCleanup, "用户仍是群组成员", err)
	}
	if err != nil {
		return storeError(err, "用户不存在", "", "删除用户失败")
	}
	log.Printf("Account %d deleted after leaving %d groups", userID, len(groups))
	return nil
}

func (s *cascadeService) deleteGroup(ctx context.Context, group *models.Group) error {
	return untilClean(func() error {
		comments, err := s.comments.ListByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		if err := s.removeComments(ctx, comments, group.AdminID); err != nil {
			return err
		}

		if s.links != nil {
			if err := s.links.DetachGroup(ctx, group.ID); err != nil {
				return wrapError(KindPartialCleanup, "解除书籍与群组的关联失败", err)
			}
		}

		return s.groups.DeleteGroup(ctx, group.AdminID, group.Name)
	})
}

// untilClean repeats step while its final mutation reports comments that were
// written after step enumerated them.
func untilClean(step func() error) error {
	var err error
	for round := 1; round <= cascadeRounds; round++ {
		err = step()
		if !errors.Is(err, storage.ErrGroupHasComments) && !errors.Is(err, storage.ErrMemberHasComments) {
			return err
		}
		log.Printf("Cascade round %d found new comments: %v", round, err)
	}
	return err
}

func (s *cascadeService) checkRemovable(ctx context.Context, group *models.Group, userID uint) error {
	isMember, err := s.groups.IsMember(ctx, group.ID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return newError(KindNotMember, "不是群组成员")
	}
	return nil
}

// removeComments stops at the first failure. Comments that are already gone
// count as removed.
func (s *cascadeService) removeComments(ctx context.Context, comments []models.Comment, actorID uint) error {
	for _, c := range comments {
		err := s.comments.Remove(ctx, c.ID, actorID)
		if err == nil || errors.Is(err, ErrNotFound) {
			continue
		}
		log.Printf("Cascade stopped at comment %d in group %d: %v", c.ID, c.GroupID, err)
		return wrapError(KindPartialCleanup, "清理评论未完成", err)
	}
	return nil
}
