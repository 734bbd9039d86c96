package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookclub/internal/middleware"
)

// Route is one entry of the API route table.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
	// Public routes skip the auth middleware.
	Public bool
}

// Handlers groups every HTTP handler served by the API server.
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Friends  *FriendHandler
	Groups   *GroupHandler
	Comments *CommentHandler
	Books    *BookHandler
	Lists    *ListHandler
	Posts    *PostHandler
}

// Routes 返回完整的路由表。protected 路由的 Path 相对 /api/v1。
// 静态路径必须排在同前缀的变量路径之前，mux 按注册顺序匹配。
func Routes(h *Handlers) []Route {
	return []Route{
		{http.MethodGet, "/healthz", Healthz, true},
		{http.MethodGet, "/metrics", promhttp.Handler().ServeHTTP, true},
		{http.MethodPost, "/auth/register", h.Auth.Register, true},
		{http.MethodPost, "/auth/login", h.Auth.Login, true},
		{http.MethodPost, "/auth/logout", h.Auth.Logout, false},

		{http.MethodGet, "/users", h.Users.ListUsersHandler, false},
		{http.MethodGet, "/users/me", h.Users.GetMyProfileHandler, false},
		{http.MethodPut, "/users/me", h.Users.UpdateMyProfileHandler, false},
		{http.MethodDelete, "/users/me", h.Auth.DeleteAccount, false},
		{http.MethodGet, "/users/search", h.Users.SearchUsersHandler, false},
		{http.MethodGet, "/users/{username}", h.Users.GetUserProfileHandler, false},

		{http.MethodGet, "/friends", h.Friends.ListFriendsHandler, false},
		{http.MethodDelete, "/friends/{username}", h.Friends.RemoveFriendHandler, false},
		{http.MethodGet, "/friend-requests/incoming", h.Friends.ListIncomingRequestsHandler, false},
		{http.MethodGet, "/friend-requests/outgoing", h.Friends.ListOutgoingRequestsHandler, false},
		{http.MethodPost, "/friend-requests/{username}", h.Friends.SendFriendRequestHandler, false},
		{http.MethodDelete, "/friend-requests/{username}", h.Friends.WithdrawFriendRequestHandler, false},
		{http.MethodPut, "/friend-requests/{username}/accept", h.Friends.AcceptFriendRequestHandler, false},
		{http.MethodPut, "/friend-requests/{username}/reject", h.Friends.RejectFriendRequestHandler, false},

		{http.MethodPost, "/groups", h.Groups.CreateGroupHandler, false},
		{http.MethodGet, "/groups", h.Groups.ListGroupsHandler, false},
		{http.MethodGet, "/groups/mine", h.Groups.ListMyGroupsHandler, false},
		{http.MethodGet, "/groups/{name}", h.Groups.GetGroupHandler, false},
		{http.MethodDelete, "/groups/{name}", h.Groups.DeleteGroupHandler, false},
		{http.MethodGet, "/groups/{name}/members", h.Groups.GetGroupMembersHandler, false},
		{http.MethodDelete, "/groups/{name}/members/{userID:[0-9]+}", h.Groups.RemoveMemberHandler, false},
		{http.MethodPost, "/groups/{name}/join", h.Groups.JoinGroupHandler, false},
		{http.MethodPost, "/groups/{name}/leave", h.Groups.LeaveGroupHandler, false},
		{http.MethodPut, "/groups/{name}/admin", h.Groups.ChangeAdminHandler, false},
		{http.MethodPut, "/groups/{name}/name", h.Groups.RenameGroupHandler, false},

		{http.MethodGet, "/groups/{name}/comments", h.Comments.ListCommentsHandler, false},
		{http.MethodPost, "/groups/{name}/comments", h.Comments.CreateCommentHandler, false},
		{http.MethodPost, "/groups/{name}/comments/{commentID:[0-9]+}/replies", h.Comments.ReplyHandler, false},
		{http.MethodDelete, "/comments/{commentID:[0-9]+}", h.Comments.DeleteCommentHandler, false},

		{http.MethodGet, "/books", h.Books.ListBooksHandler, false},
		{http.MethodPost, "/books", h.Books.CreateBookHandler, false},
		{http.MethodGet, "/books/recommendations", h.Books.RecommendHandler, false},
		{http.MethodGet, "/books/{title}", h.Books.GetBookHandler, false},
		{http.MethodPut, "/books/{title}/groups/{name}", h.Books.LinkGroupHandler, false},
		{http.MethodDelete, "/books/{title}/groups/{name}", h.Books.UnlinkGroupHandler, false},

		{http.MethodGet, "/lists", h.Lists.ListListsHandler, false},
		{http.MethodPost, "/lists", h.Lists.CreateListHandler, false},
		{http.MethodGet, "/lists/{name}", h.Lists.GetListHandler, false},
		{http.MethodDelete, "/lists/{name}", h.Lists.DeleteListHandler, false},
		{http.MethodPut, "/lists/{name}/books/{title}", h.Lists.AddBookHandler, false},
		{http.MethodDelete, "/lists/{name}/books/{title}", h.Lists.RemoveBookHandler, false},

		{http.MethodGet, "/posts", h.Posts.ListPostsHandler, false},
		{http.MethodPost, "/posts", h.Posts.CreatePostHandler, false},
		{http.MethodPatch, "/posts/{postID:[0-9]+}", h.Posts.UpdatePostHandler, false},
		{http.MethodDelete, "/posts/{postID:[0-9]+}", h.Posts.DeletePostHandler, false},
	}
}

// NewRouter registers routes on a new router. Public routes are mounted at
// the root, the rest under /api/v1 behind authMW.
func NewRouter(routes []Route, authMW mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)

	for _, rt := range routes {
		if rt.Public {
			r.HandleFunc(rt.Path, rt.Handler).Methods(rt.Method)
			continue
		}
		apiRouter.HandleFunc(rt.Path, rt.Handler).Methods(rt.Method)
	}
	return r
}

// Healthz 用于存活探针。
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
