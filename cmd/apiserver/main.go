package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"bookclub/internal/config"
	"bookclub/internal/handlers/apiserver"
	appKafka "bookclub/internal/kafka"
	"bookclub/internal/middleware"
	appRedis "bookclub/internal/redis"
	"bookclub/internal/services"
	"bookclub/internal/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Println("API 服务器配置加载成功。")

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	log.Println("API 服务器数据库连接成功。")

	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("API 服务器数据库表迁移失败: %v", err)
	}

	// 3. 初始化 Redis Client
	redisClient, err := appRedis.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatalf("无法连接到 Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("成功连接到 Redis")

	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)
	recommendationCache := appRedis.NewRedisRecommendationCache(redisClient, cfg.Catalog.RecommendTTL)

	// 4. 初始化事件发布 (Kafka 关闭时事件被丢弃)
	events := services.NewNopEventPublisher()
	if cfg.Kafka.Enabled {
		kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
		if err != nil {
			log.Fatalf("无法创建 Kafka 生产者: %v", err)
		}
		defer kfkProducer.Close()
		events = services.NewKafkaEventPublisher(kfkProducer, cfg.Kafka.EventsTopic)
		log.Printf("Kafka 生产者初始化成功，事件 topic: %s", cfg.Kafka.EventsTopic)
	}

	// 5. 初始化 Repositories
	userRepo := storage.NewGormUserRepository(db)
	groupRepo := storage.NewGormGroupRepository(db)
	bookRepo := storage.NewGormBookRepository(db)

	// 6. 初始化 Services
	authService := services.NewAuthService(userRepo, cfg.Auth)
	userService := services.NewUserService(userRepo)
	friendService := services.NewFriendService(db, userRepo,
		storage.NewGormFriendRequestRepository(db), storage.NewGormFriendshipRepository(db), events)
	groupService := services.NewGroupService(db, groupRepo, events)
	commentService := services.NewCommentService(storage.NewGormCommentRepository(db), groupRepo)
	bookService := services.NewBookService(bookRepo, groupService, recommendationCache)
	listService := services.NewReadingListService(storage.NewGormReadingListRepository(db), bookRepo)
	postService := services.NewPostService(storage.NewGormPostRepository(db))
	cascadeService := services.NewCascadeService(groupService, commentService, bookService, userRepo)

	// 7. 初始化 Handlers 和路由
	h := &apiserver.Handlers{
		Auth:     apiserver.NewAuthHandler(authService, cascadeService, tokenBlacklist),
		Users:    apiserver.NewUserHandler(userService),
		Friends:  apiserver.NewFriendHandler(friendService, userService),
		Groups:   apiserver.NewGroupHandler(groupService, cascadeService, userService),
		Comments: apiserver.NewCommentHandler(commentService, groupService, userService),
		Books:    apiserver.NewBookHandler(bookService, cfg.Catalog.RecommendCount),
		Lists:    apiserver.NewListHandler(listService),
		Posts:    apiserver.NewPostHandler(postService, userService),
	}
	router := apiserver.NewRouter(apiserver.Routes(h), middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklist))

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	// 8. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handlers.CORS(corsOptions...)(router),
		ReadTimeout:  cfg.APIServer.ReadTimeout,
		WriteTimeout: cfg.APIServer.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Printf("API 服务器启动于 %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API 服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到关闭信号，正在关闭 API 服务器...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("API 服务器强制关闭: %v", err)
	}
	log.Println("API 服务器已成功关闭")
}
