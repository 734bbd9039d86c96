package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"bookclub/internal/models"
	"bookclub/internal/services"
)

// CommentHandler 封装了群组评论的 HTTP 处理器方法。
type CommentHandler struct {
	commentService services.CommentService
	groupService   services.GroupService
	userService    services.UserService
}

// NewCommentHandler 创建一个新的 CommentHandler 实例。
func NewCommentHandler(commentService services.CommentService, groupService services.GroupService, userService services.UserService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		groupService:   groupService,
		userService:    userService,
	}
}

// CommentRequest 是发表评论或回复的请求结构体。
type CommentRequest struct {
	Body string `json:"body"`
}

func (h *CommentHandler) group(w http.ResponseWriter, r *http.Request) (*models.Group, bool) {
	group, err := h.groupService.GetGroup(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return group, true
}

// ListCommentsHandler 列出群组评论，?author=username 只返回该用户的评论。
func (h *CommentHandler) ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	group, ok := h.group(w, r)
	if !ok {
		return
	}

	var comments []models.Comment
	var err error
	if author := r.URL.Query().Get("author"); author != "" {
		user, uerr := h.userService.GetUserByUsername(r.Context(), author)
		if uerr != nil {
			writeServiceError(w, uerr)
			return
		}
		comments, err = h.commentService.ListByUserInGroup(r.Context(), group.ID, user.ID)
	} else {
		comments, err = h.commentService.ListByGroup(r.Context(), group.ID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, comments)
}

// CreateCommentHandler 在群组内发表根评论。
func (h *CommentHandler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, ok := h.group(w, r)
	if !ok {
		return
	}

	comment, err := h.commentService.Create(r.Context(), userID, req.Body, group.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, comment)
}

// ReplyHandler 回复同一群组内的 {commentID}。
func (h *CommentHandler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	parentID, ok := pathUint(w, r, "commentID")
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, ok := h.group(w, r)
	if !ok {
		return
	}

	comment, err := h.commentService.Reply(r.Context(), userID, req.Body, parentID, group.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, comment)
}

// DeleteCommentHandler 删除评论，作者或群组管理员可操作。
func (h *CommentHandler) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUint(w, r, "commentID")
	if !ok {
		return
	}
	if err := h.commentService.Remove(r.Context(), commentID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
