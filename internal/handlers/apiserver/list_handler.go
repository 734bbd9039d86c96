package apiserver

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"bookclub/internal/services"
)

// ListHandler 处理当前用户的阅读清单。
type ListHandler struct {
	listService services.ReadingListService
}

func NewListHandler(listService services.ReadingListService) *ListHandler {
	return &ListHandler{listService: listService}
}

// NewListRequest 是创建阅读清单的请求结构体。
type NewListRequest struct {
	Name string `json:"name"`
}

func (h *ListHandler) CreateListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req NewListRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	list, err := h.listService.NewList(r.Context(), userID, strings.TrimSpace(req.Name))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, list)
}

func (h *ListHandler) ListListsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lists, err := h.listService.ListUserLists(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, lists)
}

func (h *ListHandler) GetListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.listService.GetList(r.Context(), userID, mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, list)
}

func (h *ListHandler) DeleteListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.listService.DeleteList(r.Context(), userID, mux.Vars(r)["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddBookHandler 把 {title} 加入清单。
func (h *ListHandler) AddBookHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.listService.AddBook(r.Context(), userID, vars["name"], vars["title"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "已加入清单"})
}

func (h *ListHandler) RemoveBookHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.listService.RemoveBook(r.Context(), userID, vars["name"], vars["title"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
