package routes

import (
	"context"
	"log"
	"time"

	"github.com/Lwazi-M/studyconnect-2.0/internal/config"
	"github.com/Lwazi-M/studyconnect-2.0/internal/handlers"
	"github.com/Lwazi-M/studyconnect-2.0/internal/middleware"
	"github.com/Lwazi-M/studyconnect-2.0/internal/repository"
	"github.com/Lwazi-M/studyconnect-2.0/internal/services"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store/memory"
	chatws "github.com/Lwazi-M/studyconnect-2.0/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the stores, services and handlers. With a database
// pool the Postgres repositories back the stores; without one the in-memory
// stores are used.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	var (
		conversationStore store.ConversationStore
		peerDirectory     store.PeerDirectory
		resourceStore     store.ResourceStore
	)
	if db != nil {
		conversationStore = repository.NewConversationRepository(db)
		peerDirectory = repository.NewPeerRepository(db)
		resourceStore = repository.NewResourceRepository(db)
	} else {
		conversationStore = memory.NewConversationStore()
		peerDirectory = memory.NewPeerDirectory()
		resourceStore = memory.NewResourceStore()
	}

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	directoryService := services.NewDirectoryService(peerDirectory)
	messagingService := services.NewMessagingService(conversationStore, peerDirectory)
	libraryService := services.NewLibraryService(resourceStore, storageService, cfg.MaxUploadBytes, cfg.AllowedResourceTypes)

	chatHub := chatws.NewHub(directoryService)
	go chatHub.Run()
	go runPurgeLoop(libraryService, cfg.PurgeInterval)

	authHandler := handlers.NewAuthHandler(peerDirectory, cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(messagingService, chatHub, cfg.JWTSecret)
	peerHandler := handlers.NewPeerDiscoveryHandler(directoryService)
	resourceHandler := handlers.NewResourceHandler(libraryService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	peers := authProtected.Group("/peers")
	peers.Get("", peerHandler.ListPeers)
	peers.Put("/profile", peerHandler.UpdateProfile)
	peers.Post("/presence", peerHandler.Heartbeat)
	peers.Delete("/me", peerHandler.Deactivate)
	peers.Get("/:id", peerHandler.GetPeerDetail)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Post("/:id/read", chatHandler.MarkRead)

	resources := authProtected.Group("/resources")
	resources.Get("", resourceHandler.ListResources)
	resources.Post("", resourceHandler.Upload)
	resources.Get("/:id/download", resourceHandler.GetDownloadURL)
	resources.Delete("/:id", resourceHandler.Delete)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}

// runPurgeLoop is the periodic sweep that drops expired resources.
func runPurgeLoop(library *services.LibraryService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		count, err := library.PurgeExpired(context.Background(), time.Now().UTC())
		if err != nil {
			log.Printf("purge expired resources: %v", err)
			continue
		}
		if count > 0 {
			log.Printf("purged %d expired resources", count)
		}
	}
}
