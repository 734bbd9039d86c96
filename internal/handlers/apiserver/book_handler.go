package apiserver

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"bookclub/internal/services"
)

// BookHandler serves the catalog, group links and recommendations.
type BookHandler struct {
	bookService    services.BookService
	recommendCount int
}

// NewBookHandler 创建一个新的 BookHandler 实例。recommendCount 是 n 缺省值。
func NewBookHandler(bookService services.BookService, recommendCount int) *BookHandler {
	return &BookHandler{bookService: bookService, recommendCount: recommendCount}
}

// NewBookRequest 是添加书籍的请求结构体。
type NewBookRequest struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Summary string `json:"summary,omitempty"`
	Review  int    `json:"review"`
}

// CreateBookHandler 向目录添加一本书。
func (h *BookHandler) CreateBookHandler(w http.ResponseWriter, r *http.Request) {
	var req NewBookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	book, err := h.bookService.NewBook(r.Context(), strings.TrimSpace(req.Title), req.Author, req.Summary, req.Review)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, book)
}

func (h *BookHandler) ListBooksHandler(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListBooks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, books)
}

func (h *BookHandler) GetBookHandler(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.GetBook(r.Context(), mux.Vars(r)["title"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, book)
}

// RecommendHandler 返回 ?n= 本随机书名，目录不足时返回全部。
func (h *BookHandler) RecommendHandler(w http.ResponseWriter, r *http.Request) {
	titles, err := h.bookService.Recommend(r.Context(), queryInt(r, "n", h.recommendCount))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string][]string{"titles": titles})
}

// LinkGroupHandler 把书关联到 {name} 群组，仅该群组管理员。
func (h *BookHandler) LinkGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.bookService.AddGroup(r.Context(), userID, vars["title"], vars["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "已关联群组"})
}

// UnlinkGroupHandler 取消书与群组的关联。
func (h *BookHandler) UnlinkGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.bookService.RemoveGroup(r.Context(), userID, vars["title"], vars["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
