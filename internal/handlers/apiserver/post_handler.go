package apiserver

import (
	"net/http"

	"bookclub/internal/services"
)

// PostHandler 封装了个人帖子的 HTTP 处理器方法。
type PostHandler struct {
	postService services.PostService
	userService services.UserService
}

// NewPostHandler 创建一个新的 PostHandler 实例。
func NewPostHandler(postService services.PostService, userService services.UserService) *PostHandler {
	return &PostHandler{postService: postService, userService: userService}
}

// PostRequest 是发布或修改帖子的请求结构体。
type PostRequest struct {
	Content string `json:"content"`
}

// ListPostsHandler 按时间倒序列出帖子，?author=username 只返回该用户的帖子。
func (h *PostHandler) ListPostsHandler(w http.ResponseWriter, r *http.Request) {
	var authorID uint
	if author := r.URL.Query().Get("author"); author != "" {
		user, err := h.userService.GetUserByUsername(r.Context(), author)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		authorID = user.ID
	}

	posts, err := h.postService.List(r.Context(), authorID, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, posts)
}

// CreatePostHandler 以当前用户身份发布帖子。
func (h *PostHandler) CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, post)
}

// UpdatePostHandler 修改自己帖子的内容。
func (h *PostHandler) UpdatePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathUint(w, r, "postID")
	if !ok {
		return
	}
	var req PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.Update(r.Context(), postID, userID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, post)
}

// DeletePostHandler 删除自己的帖子。
func (h *PostHandler) DeletePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathUint(w, r, "postID")
	if !ok {
		return
	}
	if err := h.postService.Delete(r.Context(), postID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
