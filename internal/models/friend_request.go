package models

import "fmt"

// FriendRequestStatus 定义好友请求的状态
type FriendRequestStatus string

// Only pending requests are stored; accepted and rejected requests are deleted,
// so the other statuses appear in events and responses only.
const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
	FriendRequestStatusRejected FriendRequestStatus = "rejected"
)

// FriendRequest 代表一个待处理的好友请求记录
type FriendRequest struct {
	BaseModel
	RequesterUserID uint                `gorm:"not null;index:idx_friend_request_users" json:"requesterUserId"`
	RecipientUserID uint                `gorm:"not null;index:idx_friend_request_users" json:"recipientUserId"`
	PairKey         string              `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Status          FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	RequestMessage  string              `gorm:"type:text" json:"requestMessage,omitempty"`
}

// TableName 指定 FriendRequest 模型的表名。
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// PairKeyFor returns the direction-independent key of two users. Both (a,b) and
// (b,a) map to the same key, which is what makes a reverse duplicate collide.
func PairKeyFor(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// FriendRequestWithUser is a DTO that includes friend request details
// along with basic information about the other party.
type FriendRequestWithUser struct {
	FriendRequest
	User *UserBasicInfo `json:"user"`
}
