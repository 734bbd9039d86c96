package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bookclub/internal/middleware"
	"bookclub/internal/services"
)

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("无法编码 JSON 响应: %v", err)
		}
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// statusForKind maps a service error kind to an HTTP status.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindNotAllowed:
		return http.StatusForbidden
	case services.KindDuplicateName, services.KindDuplicatePending,
		services.KindAlreadyFriends, services.KindAlreadyMember:
		return http.StatusConflict
	case services.KindInvalidRequest, services.KindNotMember,
		services.KindAdminCannotLeave, services.KindCannotRemoveSelf:
		return http.StatusBadRequest
	case services.KindPartialCleanup:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

// writeServiceError 把 services.Error 转成 {"error","code"} 响应。
func writeServiceError(w http.ResponseWriter, err error) {
	kind := services.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	var svcErr *services.Error
	if errors.As(err, &svcErr) && svcErr.Message != "" && kind != services.KindPartialCleanup {
		message = svcErr.Message
	}
	if status == http.StatusServiceUnavailable {
		log.Printf("请求失败: %v", err)
		message = "存储暂不可用"
	}
	writeJSONResponse(w, status, ErrorResponse{Error: message, Code: string(kind)})
}

// decodeJSON 解码请求体，失败时已写入 400。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, ErrorResponse{Error: "请求体无效", Code: string(services.KindInvalidRequest)})
		return false
	}
	return true
}

// currentUser 从上下文中读取认证用户ID，失败时已写入 401。
func currentUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
	}
	return userID, ok
}

// pathUint 解析数字路径参数，失败时已写入 400。
func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := mux.Vars(r)[name]
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		writeJSONResponse(w, http.StatusBadRequest, ErrorResponse{Error: "无效的 " + name, Code: string(services.KindInvalidRequest)})
		return 0, false
	}
	return uint(v), true
}

// queryInt 读取整数查询参数，缺失或非法时返回 def。
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
