package apiserver

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"bookclub/internal/services"
)

// GroupHandler 封装了群组相关的 HTTP 处理器方法。
// 离开、移除成员和删除群组都经过 CascadeService，先清理评论再修改成员关系。
type GroupHandler struct {
	groupService services.GroupService
	cascade      services.CascadeService
	userService  services.UserService
}

// NewGroupHandler 创建一个新的 GroupHandler 实例。
func NewGroupHandler(groupService services.GroupService, cascade services.CascadeService, userService services.UserService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		cascade:      cascade,
		userService:  userService,
	}
}

// CreateGroupRequest 是创建群组的请求结构体。
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateGroupHandler 处理创建新群组的请求，创建者成为管理员。
func (h *GroupHandler) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), userID, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, group)
}

// ListGroupsHandler 列出群组，带 q 参数时按名称搜索。
func (h *GroupHandler) ListGroupsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	var err error
	var groups interface{}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		groups, err = h.groupService.SearchGroups(r.Context(), q, limit, offset)
	} else {
		groups, err = h.groupService.ListGroups(r.Context(), limit, offset)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, groups)
}

// ListMyGroupsHandler 返回当前用户加入的群组。
func (h *GroupHandler) ListMyGroupsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groups, err := h.groupService.ListUserGroups(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, groups)
}

// GetGroupHandler 返回群组详情。
func (h *GroupHandler) GetGroupHandler(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupService.GetGroup(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, group)
}

// GetGroupMembersHandler 返回按加入时间排序的成员列表。
func (h *GroupHandler) GetGroupMembersHandler(w http.ResponseWriter, r *http.Request) {
	members, err := h.groupService.ListMembers(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, members)
}

// JoinGroupHandler 处理加入群组的请求。
func (h *GroupHandler) JoinGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	member, err := h.groupService.Join(r.Context(), userID, mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, member)
}

// LeaveGroupHandler 删除用户在群组内的评论后退出群组。
func (h *GroupHandler) LeaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.cascade.UserLeavesGroup(r.Context(), userID, mux.Vars(r)["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "已退出群组"})
}

// RemoveMemberHandler 管理员移除 {userID}，连同其评论。
func (h *GroupHandler) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUint(w, r, "userID")
	if !ok {
		return
	}
	if err := h.cascade.AdminRemovesUser(r.Context(), adminID, targetID, mux.Vars(r)["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "成员已移除"})
}

// ChangeAdminRequest 指定新的管理员用户名。
type ChangeAdminRequest struct {
	Username string `json:"username"`
}

// ChangeAdminHandler 把管理员转给另一个成员。
func (h *GroupHandler) ChangeAdminHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req ChangeAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	newAdmin, err := h.userService.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	group, err := h.groupService.ChangeAdmin(r.Context(), userID, newAdmin.ID, mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, group)
}

// RenameGroupRequest 是重命名群组的请求结构体。
type RenameGroupRequest struct {
	Name string `json:"name"`
}

// RenameGroupHandler 修改群组名称，仅管理员。
func (h *GroupHandler) RenameGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req RenameGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.Rename(r.Context(), userID, mux.Vars(r)["name"], strings.TrimSpace(req.Name))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, group)
}

// DeleteGroupHandler 删除群组及其全部评论和书籍关联。
func (h *GroupHandler) DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.cascade.DeleteGroupCascade(r.Context(), userID, mux.Vars(r)["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
