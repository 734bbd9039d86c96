package models

import "time"

// Group 代表一个读书会群组。
type Group struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	AdminID     uint   `gorm:"not null;index" json:"adminId"` // 群组唯一的管理员，始终也是成员
	MemberCount int    `gorm:"default:0" json:"memberCount"`

	Members []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

// TableName 指定 Group 模型的表名。
func (Group) TableName() string {
	return "groups"
}

// GroupMemberRole 定义了用户在群组中的角色。
type GroupMemberRole string

const (
	AdminRole  GroupMemberRole = "admin"
	MemberRole GroupMemberRole = "member"
)

// GroupMember 将用户链接到群组并定义其角色。
type GroupMember struct {
	GroupID  uint            `gorm:"primaryKey;autoIncrement:false" json:"groupId"`
	UserID   uint            `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	Role     GroupMemberRole `gorm:"type:varchar(20);default:'member'" json:"role"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// TableName 指定 GroupMember 模型的表名。
func (GroupMember) TableName() string {
	return "group_members"
}
