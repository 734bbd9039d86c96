package apiserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"bookclub/internal/services"
)

// FriendHandler serves friendship and friend request routes. Peers are
// addressed by username in the path.
type FriendHandler struct {
	friendService services.FriendService
	userService   services.UserService
}

// NewFriendHandler 创建一个新的 FriendHandler 实例。
func NewFriendHandler(friendService services.FriendService, userService services.UserService) *FriendHandler {
	return &FriendHandler{friendService: friendService, userService: userService}
}

// peer 解析路径中的 {username}，返回当前用户和对方的 ID。
func (h *FriendHandler) peer(w http.ResponseWriter, r *http.Request) (uint, uint, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return 0, 0, false
	}
	other, err := h.userService.GetUserByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeServiceError(w, err)
		return 0, 0, false
	}
	return userID, other.ID, true
}

// ListFriendsHandler 返回当前用户的好友列表。
func (h *FriendHandler) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	friends, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, friends)
}

// RemoveFriendHandler 解除好友关系。
func (h *FriendHandler) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.friendService.RemoveFriend, "好友已删除")
}

// SendFriendRequestHandler 向 {username} 发送好友请求。
func (h *FriendHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, otherID, ok := h.peer(w, r)
	if !ok {
		return
	}
	req, err := h.friendService.SendRequest(r.Context(), userID, otherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, req)
}

// WithdrawFriendRequestHandler 撤回发给 {username} 的请求。
func (h *FriendHandler) WithdrawFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.friendService.WithdrawRequest, "好友请求已撤回")
}

// AcceptFriendRequestHandler 接受 {username} 发来的请求。
func (h *FriendHandler) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, me, sender uint) error {
		return h.friendService.AcceptRequest(ctx, sender, me)
	}, "好友请求已接受")
}

// RejectFriendRequestHandler 拒绝 {username} 发来的请求。
func (h *FriendHandler) RejectFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, me, sender uint) error {
		return h.friendService.RejectRequest(ctx, sender, me)
	}, "好友请求已拒绝")
}

func (h *FriendHandler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, me, other uint) error, message string) {
	userID, otherID, ok := h.peer(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), userID, otherID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": message})
}

// ListIncomingRequestsHandler 返回待处理的收到的请求。
func (h *FriendHandler) ListIncomingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	requests, err := h.friendService.ListIncomingRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListOutgoingRequestsHandler 返回当前用户发出的待处理请求。
func (h *FriendHandler) ListOutgoingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	requests, err := h.friendService.ListOutgoingRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}
