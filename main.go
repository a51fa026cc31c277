package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-bridge/internal/cache"
	"chat-bridge/internal/handlers"
	"chat-bridge/internal/middleware"
	"chat-bridge/internal/observability"
	"chat-bridge/internal/rabbitmq"
	"chat-bridge/internal/restclient"
	"chat-bridge/internal/session"
	"chat-bridge/internal/store"
	"chat-bridge/internal/telemetry"
	"chat-bridge/internal/upstream"
	"chat-bridge/internal/ws"
)

func main() {
	sess, err := session.FromEnv()
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, os.Getenv("OTLP_ENDPOINT"), "chat-bridge")
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(os.Getenv("AMQP_URL"), getEnv("AMQP_EXCHANGE", "dashboard.events"))
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, getEnv("AUDIT_ROUTING_KEY", "audit.chat_bridge"), "chat-bridge", getEnv("ENVIRONMENT", "development"))

	st := store.New()

	snapshots, err := cache.Open(getEnv("SNAPSHOT_PATH", "chat-bridge.db"))
	if err != nil {
		log.Fatalf("snapshot cache: %v", err)
	}
	defer snapshots.Close()
	restoreSnapshot(st, snapshots)

	rest := restclient.NewClient(getEnv("CHAT_API_URL", "http://localhost:8080/api/v1/chat"), sess.Token)
	hub := ws.NewHub()
	chat := upstream.NewClient(getEnv("CHAT_WS_URL", "ws://localhost:8080/ws/chat"), sess, st, rest, hub)

	if err := chat.Connect(ctx); err != nil {
		// The bridge still serves cached state; operations retry on use.
		log.Printf("initial connect failed: %v", err)
	}
	if err := chat.RefreshConversations(ctx); err != nil {
		log.Printf("initial conversation fetch failed: %v", err)
	}

	apiToken := os.Getenv("BRIDGE_API_TOKEN")
	facade := handlers.New(chat, st, sess, rest, snapshots, audit)
	debug := handlers.NewDebugHandler(chat, hub, st, sess, rabbitmq.PublisherMode(publisher))
	wsHandler := ws.NewHandler(hub, apiToken, sess.UserID)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware("chat-bridge"))
	router.Use(observability.HTTPMetricsMiddleware())

	api := router.Group("/api/v1", middleware.AuthMiddleware(apiToken))
	facade.Register(api)
	router.GET("/debug/state", middleware.AuthMiddleware(apiToken), debug.State)
	router.GET("/ws", wsHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8091"),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("chat bridge listening on %s", srv.Addr)

	<-ctx.Done()
	log.Printf("shutting down")

	chat.Disconnect()
	persistSnapshot(st, snapshots)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

func restoreSnapshot(st *store.Store, snapshots *cache.Cache) {
	if convs, err := snapshots.LoadConversations(); err != nil {
		log.Printf("conversation snapshot unreadable: %v", err)
	} else if len(convs) > 0 {
		st.ReplaceConversations(convs)
		log.Printf("restored %d conversations from snapshot", len(convs))
	}
	if pins, err := snapshots.LoadPins(); err != nil {
		log.Printf("pin snapshot unreadable: %v", err)
	} else if len(pins) > 0 {
		st.ReplacePins(pins)
	}
}

func persistSnapshot(st *store.Store, snapshots *cache.Cache) {
	convs := append(st.Active(), st.Archived()...)
	if err := snapshots.SaveConversations(convs); err != nil {
		log.Printf("conversation snapshot failed: %v", err)
	}
	if err := snapshots.SavePins(st.Pins("")); err != nil {
		log.Printf("pin snapshot failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
