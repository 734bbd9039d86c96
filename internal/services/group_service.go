package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"bookclub/internal/models"
	"bookclub/internal/storage"
)

// GroupService 定义了群组相关服务的接口。群组以名称寻址。
//
// Leave, RemoveOtherUser and DeleteGroup only touch the roster and the group
// row; comment cleanup is CascadeService's job and must run first. They fail
// with PartialCleanup, changing nothing, while the affected comments remain.
type GroupService interface {
	CreateGroup(ctx context.Context, creatorID uint, name, description string) (*models.Group, error)
	GetGroup(ctx context.Context, name string) (*models.Group, error)
	GetGroupByID(ctx context.Context, groupID uint) (*models.Group, error)
	ListGroups(ctx context.Context, limit, offset int) ([]*models.Group, error)
	SearchGroups(ctx context.Context, query string, limit, offset int) ([]*models.Group, error)
	ListUserGroups(ctx context.Context, userID uint) ([]*models.Group, error)
	ListMembers(ctx context.Context, name string) ([]*models.GroupMember, error)
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)

	Join(ctx context.Context, userID uint, name string) (*models.GroupMember, error)
	Leave(ctx context.Context, userID uint, name string) error
	RemoveOtherUser(ctx context.Context, requesterID, targetID uint, name string) error
	ChangeAdmin(ctx context.Context, requesterID, newAdminID uint, name string) (*models.Group, error)
	Rename(ctx context.Context, requesterID uint, name, newName string) (*models.Group, error)
	DeleteGroup(ctx context.Context, requesterID uint, name string) error
}

// groupService 是 GroupService 的实现。
type groupService struct {
	db        *gorm.DB
	groupRepo storage.GroupRepository
	events    EventPublisher
}

// NewGroupService 创建一个新的 GroupService 实例。
func NewGroupService(db *gorm.DB, groupRepo storage.GroupRepository, events EventPublisher) GroupService {
	return &groupService{db: db, groupRepo: groupRepo, events: events}
}

// CreateGroup 创建一个新的群组，创建者成为管理员和唯一成员。
func (s *groupService) CreateGroup(ctx context.Context, creatorID uint, name, description string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(KindInvalidRequest, "群组名称不能为空")
	}

	if _, err := s.groupRepo.GetGroupByName(ctx, name); err == nil {
		return nil, newError(KindDuplicateName, "群组名称已存在")
	} else if !storage.IsNotFound(err) {
		return nil, storeError(err, "", "", "检查群组名称失败")
	}

	newGroup := &models.Group{
		Name:        name,
		Description: description,
		AdminID:     creatorID,
		MemberCount: 1, // 创建者是第一个成员
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txGroupRepo := storage.NewGormGroupRepository(tx)
		if err := txGroupRepo.CreateGroup(ctx, newGroup); err != nil {
			// 并发创建同名群组时由唯一索引拦截
			return storeError(err, "", KindDuplicateName, "创建群组失败")
		}
		adminMember := &models.GroupMember{
			GroupID:  newGroup.ID,
			UserID:   creatorID,
			Role:     models.AdminRole,
			JoinedAt: time.Now(),
		}
		if err := txGroupRepo.AddMember(ctx, adminMember); err != nil {
			return storeError(err, "", "", "添加群组管理员失败")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Printf("Group %q (%d) created by user %d", newGroup.Name, newGroup.ID, creatorID)
	return newGroup, nil
}

// GetGroup 通过名称获取群组。
func (s *groupService) GetGroup(ctx context.Context, name string) (*models.Group, error) {
	group, err := s.groupRepo.GetGroupByName(ctx, name)
	if err != nil {
		return nil, storeError(err, "群组不存在", "", "获取群组失败")
	}
	return group, nil
}

func (s *groupService) GetGroupByID(ctx context.Context, groupID uint) (*models.Group, error) {
	group, err := s.groupRepo.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, storeError(err, "群组不存在", "", "获取群组失败")
	}
	return group, nil
}

func (s *groupService) ListGroups(ctx context.Context, limit, offset int) ([]*models.Group, error) {
	groups, err := s.groupRepo.ListGroups(ctx, limit, offset)
	if err != nil {
		return nil, storeError(err, "", "", "获取群组列表失败")
	}
	return groups, nil
}

func (s *groupService) SearchGroups(ctx context.Context, query string, limit, offset int) ([]*models.Group, error) {
	groups, err := s.groupRepo.SearchGroups(ctx, query, limit, offset)
	if err != nil {
		return nil, storeError(err, "", "", "搜索群组失败")
	}
	return groups, nil
}

// ListUserGroups 获取用户加入的所有群组列表。
func (s *groupService) ListUserGroups(ctx context.Context, userID uint) ([]*models.Group, error) {
	groups, err := s.groupRepo.GetUserGroups(ctx, userID, 0, 0)
	if err != nil {
		return nil, storeError(err, "", "", "获取用户群组失败")
	}
	return groups, nil
}

// ListMembers 获取群组成员列表。
func (s *groupService) ListMembers(ctx context.Context, name string) ([]*models.GroupMember, error) {
	group, err := s.GetGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	members, err := s.groupRepo.GetGroupMembers(ctx, group.ID, 0, 0)
	if err != nil {
		return nil, storeError(err, "", "", "获取群组成员失败")
	}
	return members, nil
}

func (s *groupService) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	_, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if err == nil {
		return true, nil
	}
	if storage.IsNotFound(err) {
		return false, nil
	}
	return false, storeError(err, "", "", "检查群组成员失败")
}

// Join 用户加入群组。
func (s *groupService) Join(ctx context.Context, userID uint, name string) (*models.GroupMember, error) {
	group, err := s.GetGroup(ctx, name)
	if err != nil {
		return nil, err
	}

	isMember, err := s.IsMember(ctx, group.ID, userID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, newError(KindAlreadyMember, "已经是群组成员")
	}

	newMember := &models.GroupMember{
		GroupID:  group.ID,
		UserID:   userID,
		Role:     models.MemberRole,
		JoinedAt: time.Now(),
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storage.NewGormGroupRepository(tx).AddMember(ctx, newMember); err != nil {
			return storeError(err, "", KindAlreadyMember, "加入群组失败")
		}
		return adjustMemberCount(tx, group.ID, 1)
	})
	if txErr != nil {
		return nil, txErr
	}

	publish(ctx, s.events, Event{
		Type:          EventGroupJoined,
		ActorID:       userID,
		TargetUserIDs: []uint{group.AdminID},
		GroupID:       group.ID,
		GroupName:     group.Name,
	})
	return newMember, nil
}

// Leave 用户离开群组。管理员必须先转让管理员身份或删除群组。
func (s *groupService) Leave(ctx context.Context, userID uint, name string) error {
	group, err := s.GetGroup(ctx, name)
	if err != nil {
		return err
	}

	isMember, err := s.IsMember(ctx, group.ID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return newError(KindNotMember, "不是群组成员")
	}
	if group.AdminID == userID {
		return newError(KindAdminCannotLeave, "群主需要先转让群主身份才能离开群组")
	}

	if err := s.removeMember(ctx, group.ID, userID); err != nil {
		return err
	}

	publish(ctx, s.events, Event{
		Type:          EventGroupLeft,
		ActorID:       userID,
		TargetUserIDs: []uint{group.AdminID},
		GroupID:       group.ID,
		GroupName:     group.Name,
	})
	return nil
}

// RemoveOtherUser 管理员将其他成员移出群组。
func (s *groupService) RemoveOtherUser(ctx context.Context, requesterID, targetID uint, name string) error {
	group, err := s.GetGroup(ctx, name)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return newError(KindNotAllowed, "只有群组管理员可以移除成员")
	}
	if targetID == group.AdminID {
		return newError(KindCannotRemoveSelf, "管理员不能移除自己")
	}

	isMember, err := s.IsMember(ctx, group.ID, targetID)
	if err != nil {
		return err
	}
	if !isMember {
		return newError(KindNotMember, "目标用户不是群组成员")
	}

	if err := s.removeMember(ctx, group.ID, targetID); err != nil {
		return err
	}

	publish(ctx, s.events, Event{
		Type:          EventGroupMemberRemoved,
		ActorID:       requesterID,
		TargetUserIDs: []uint{targetID},
		GroupID:       group.ID,
		GroupName:     group.Name,
	})
	return nil
}

func (s *groupService) removeMember(ctx context.Context, groupID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storage.NewGormGroupRepository(tx).RemoveMember(ctx, groupID, userID); err != nil {
			if errors.Is(err, storage.ErrMemberHasComments) {
				return wrapError(KindPartialCleanup, "成员在群组中仍有评论", err)
			}
			return storeError(err, "不是群组成员", "", "移除群组成员失败")
		}
		return adjustMemberCount(tx, groupID, -1)
	})
}

// ChangeAdmin 将管理员身份转让给另一个成员，原管理员保留为普通成员。
func (s *groupService) ChangeAdmin(ctx context.Context, requesterID, newAdminID uint, name string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if group.AdminID != requesterID {
		return nil, newError(KindNotAllowed, "只有群组管理员可以转让管理员身份")
	}
	if newAdminID == requesterID {
		return group, nil
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txGroupRepo := storage.NewGormGroupRepository(tx)

		newAdmin, err := txGroupRepo.GetMember(ctx, group.ID, newAdminID)
		if err != nil {
			if storage.IsNotFound(err) {
				return newError(KindNotMember, "新管理员不是群组成员")
			}
			return storeError(err, "", "", "获取群组成员失败")
		}
		oldAdmin, err := txGroupRepo.GetMember(ctx, group.ID, requesterID)
		if err != nil {
			return storeError(err, "管理员成员记录不存在", "", "获取群组成员失败")
		}

		oldAdmin.Role = models.MemberRole
		newAdmin.Role = models.AdminRole
		if err := txGroupRepo.UpdateMember(ctx, oldAdmin); err != nil {
			return storeError(err, "", "", "更新成员角色失败")
		}
		if err := txGroupRepo.UpdateMember(ctx, newAdmin); err != nil {
			return storeError(err, "", "", "更新成员角色失败")
		}

		group.AdminID = newAdminID
		if err := txGroupRepo.UpdateGroup(ctx, group); err != nil {
			return storeError(err, "", "", "更新群组管理员失败")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Printf("Group %q admin changed from %d to %d", group.Name, requesterID, newAdminID)
	publish(ctx, s.events, Event{
		Type:          EventGroupAdminChanged,
		ActorID:       requesterID,
		TargetUserIDs: []uint{newAdminID},
		GroupID:       group.ID,
		GroupName:     group.Name,
	})
	return group, nil
}

// Rename 管理员修改群组名称。
func (s *groupService) Rename(ctx context.Context, requesterID uint, name, newName string) (*models.Group, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, newError(KindInvalidRequest, "群组名称不能为空")
	}

	group, err := s.GetGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if group.AdminID != requesterID {
		return nil, newError(KindNotAllowed, "只有群组管理员可以修改群组名称")
	}
	if newName == group.Name {
		return group, nil
	}

	if _, err := s.groupRepo.GetGroupByName(ctx, newName); err == nil {
		return nil, newError(KindDuplicateName, "群组名称已存在")
	} else if !storage.IsNotFound(err) {
		return nil, storeError(err, "", "", "检查群组名称失败")
	}

	oldName := group.Name
	group.Name = newName
	if err := s.groupRepo.UpdateGroup(ctx, group); err != nil {
		return nil, storeError(err, "", KindDuplicateName, "修改群组名称失败")
	}

	log.Printf("Group %d renamed from %q to %q", group.ID, oldName, newName)
	publish(ctx, s.events, Event{
		Type:          EventGroupRenamed,
		ActorID:       requesterID,
		TargetUserIDs: s.memberIDs(ctx, group.ID),
		GroupID:       group.ID,
		GroupName:     group.Name,
	})
	return group, nil
}

// DeleteGroup 删除群组记录及其成员关系。评论必须事先由 CascadeService 清理。
func (s *groupService) DeleteGroup(ctx context.Context, requesterID uint, name string) error {
	group, err := s.GetGroup(ctx, name)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return newError(KindNotAllowed, "只有群组管理员可以删除群组")
	}

	members := s.memberIDs(ctx, group.ID)
	if err := s.groupRepo.DeleteGroup(ctx, group.ID); err != nil {
		if errors.Is(err, storage.ErrGroupHasComments) {
			return wrapError(KindPartialCleanup, "群组中仍有评论", err)
		}
		return storeError(err, "群组不存在", "", "删除群组失败")
	}

	log.Printf("Group %q (%d) deleted by user %d", group.Name, group.ID, requesterID)
	publish(ctx, s.events, Event{
		Type:          EventGroupDeleted,
		ActorID:       requesterID,
		TargetUserIDs: members,
		GroupID:       group.ID,
		GroupName:     group.Name,
	})
	return nil
}

// memberIDs is best effort; it only feeds event targets.
func (s *groupService) memberIDs(ctx context.Context, groupID uint) []uint {
	members, err := s.groupRepo.GetGroupMembers(ctx, groupID, 0, 0)
	if err != nil {
		log.Printf("Error listing members of group %d: %v", groupID, err)
		return nil
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func adjustMemberCount(tx *gorm.DB, groupID uint, delta int) error {
	err := tx.Model(&models.Group{}).
		Where("id = ?", groupID).
		UpdateColumn("member_count", gorm.Expr("member_count + ?", delta)).Error
	if err != nil {
		return storeError(err, "", "", "更新群组成员数失败")
	}
	return nil
}
