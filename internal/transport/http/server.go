package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/ai"
	appsvc "ragdesk/internal/app"
	"ragdesk/internal/bootstrap"
	"ragdesk/internal/cache"
	"ragdesk/internal/repository"
	"ragdesk/internal/transport/http/handler"
	"ragdesk/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config
	userRepo := repository.NewUserRepository(app.Postgres)
	conversationRepo := repository.NewConversationRepository(app.Postgres)
	messageRepo := repository.NewMessageRepository(app.Postgres)
	chunkRepo := repository.NewChunkRepository(app.Postgres, cfg.RAG.EmbeddingDim)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		app.Logger,
	)

	embCfg := ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	}
	chatCfg := ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	}

	embeddingCache := cache.NewEmbeddingCache(app.Redis, time.Duration(cfg.Redis.EmbeddingTTLSeconds)*time.Second)
	embedder := appsvc.NewCachingEmbedder(app.AIClient, embeddingCache, app.Logger)

	retrievalService := appsvc.NewRetrievalService(embedder, chunkRepo, embCfg, cfg.RAG.TopK, app.Logger)
	ingestService := appsvc.NewIngestService(
		chunkRepo,
		embedder,
		embCfg,
		app.Encoding,
		cfg.RAG.DocumentsDir,
		cfg.RAG.ChunkSize,
		cfg.RAG.ChunkOverlap,
		cfg.RAG.EmbedBatch,
		app.Logger,
	)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	chatService := appsvc.NewChatService(
		conversationRepo,
		messageRepo,
		app.Publisher,
		historyCache,
		retrievalService,
		app.AIClient,
		chatCfg,
		cfg.LLM.MaxContextMessage,
		app.Logger,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	docsHandler := handler.NewDocsHandler(retrievalService, ingestService, chunkRepo)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	chatGroup.POST("/conversations", chatHandler.CreateConversation)
	chatGroup.GET("/conversations", chatHandler.ListConversations)
	chatGroup.DELETE("/conversations/:id", chatHandler.DeleteConversation)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/messages/stream", chatHandler.StreamMessage)
	chatGroup.GET("/history", chatHandler.GetHistory)

	docsGroup := v1.Group("/docs")
	docsGroup.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	docsGroup.POST("/search", docsHandler.Search)
	docsGroup.GET("", docsHandler.ListDocuments)
	docsGroup.POST("/reingest", docsHandler.Reingest)
	docsGroup.DELETE("/:doc_id", docsHandler.DeleteDocument)

	return router
}
