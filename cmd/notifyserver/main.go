package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookclub/internal/config"
	"bookclub/internal/handlers/notifyserver"
	appKafka "bookclub/internal/kafka"
	appRedis "bookclub/internal/redis"
	"bookclub/internal/websocket"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Println("通知服务器配置加载成功。")

	// 2. Redis 用于检查已登出的令牌
	redisClient, err := appRedis.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatalf("无法连接到 Redis: %v", err)
	}
	defer redisClient.Close()
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 初始化 WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run(ctx)
	log.Println("WebSocket Hub 已启动。")

	// 4. 消费事件 topic 并推送给目标用户
	consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("无法创建 Kafka 消费者: %v", err)
	}
	defer consumer.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Kafka 事件消费者启动，监听 topic: %s", cfg.Kafka.EventsTopic)
		err := consumer.Consume(ctx, []string{cfg.Kafka.EventsTopic}, cfg.Kafka.ConsumerGroup, notifyserver.NewEventHandler(hub))
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Kafka 事件消费者错误: %v", err)
		}
		log.Println("Kafka 事件消费者 goroutine 已停止。")
	}()

	// 5. 配置 HTTP 服务器路由
	wsHandler := notifyserver.NewWebSocketHandler(hub, cfg, tokenBlacklist)
	router := mux.NewRouter()
	router.HandleFunc(cfg.NotifyServer.WebSocketPath, wsHandler.ServeWS).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	serverAddr := fmt.Sprintf("%s:%s", cfg.NotifyServer.Host, cfg.NotifyServer.Port)
	httpServer := &http.Server{Addr: serverAddr, Handler: router}

	go func() {
		log.Printf("通知服务器启动于 %s, WebSocket 路径: %s", serverAddr, cfg.NotifyServer.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("通知服务器启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("通知服务器准备关闭...")

	cancel()
	wg.Wait()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Printf("通知服务器关闭失败: %v", err)
	}
	log.Println("通知服务器已优雅关闭。")
}
