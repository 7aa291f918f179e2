package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"careercompass/infrastructure/cache"
	"careercompass/infrastructure/db"
	"careercompass/infrastructure/storage"
	httpHandler "careercompass/internal/delivery/http"
	"careercompass/internal/repository"
	"careercompass/internal/upload"
	"careercompass/internal/usecase"
	"careercompass/pkg/jwt"
	"careercompass/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("godotenv: error loading .env file")
	}

	log, err := logger.New(os.Getenv("ENVIRONMENT") != "production")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	mongoDbHost := os.Getenv("MONGODB_URI")
	mongoDbName := os.Getenv("MONGODB_DATABASE")
	mongoDb, err := db.NewMongoStore(ctx, mongoDbHost, mongoDbName)
	if err != nil {
		log.Fatal("mongodb connect failed", zap.Error(err))
	}
	defer mongoDb.Close(ctx)

	if err := mongoDb.EnsureIndexes(ctx); err != nil {
		log.Fatal("index bootstrap failed", zap.Error(err))
	}

	log.Info("connected to MongoDB", zap.String("database", mongoDbName))

	// The object store handle is built once here and injected everywhere;
	// nothing reaches for a package-level bucket.
	objectStore, err := storage.NewObjectStore(mongoDb.DB)
	if err != nil {
		log.Fatal("object store init failed", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(*mongoDb.DB)
	chatRepo := repository.NewChatRepository(*mongoDb.DB)
	messageRepo := repository.NewMessageRepository(*mongoDb.DB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(*mongoDb.DB)

	// Initialize JWT manager
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production" // Default for development
		log.Warn("using default JWT secret; set JWT_SECRET in .env for production")
	}

	// Access token: 15 minutes, Refresh token: 30 days
	jwtManager := jwt.NewJWTManager(jwtSecret, 15*time.Minute, 30*24*time.Hour)

	// Profile cache: Redis when configured, in-memory otherwise.
	var userCache cache.Cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr != "" {
		log.Info("using Redis profile cache", zap.String("addr", redisAddr))
		userCache = cache.NewRedisCache(redisAddr)
	} else {
		log.Info("using in-memory profile cache")
		userCache = cache.NewMemCache(time.Minute)
	}
	defer userCache.Close()

	// Initialize use cases
	authUc := usecase.NewAuthUsecase(userRepo, refreshTokenRepo, jwtManager)
	chatUc := usecase.NewChatUsecase(chatRepo, messageRepo, userRepo, userCache, log)
	fileUc := usecase.NewFileUsecase(objectStore)

	gateway := upload.NewGateway(objectStore)
	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			gateway.MaxFileSize = n
		} else {
			log.Warn("ignoring invalid MAX_UPLOAD_BYTES", zap.String("value", raw))
		}
	}

	// CORS middleware
	router := chi.NewRouter()
	router.Use(logger.RequestLogger(log))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			// Handle preflight requests
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Initialize handlers
	chatH := httpHandler.NewChatHandler(chatUc, gateway, log)
	fileH := httpHandler.NewFileHandler(fileUc, log)
	authH := httpHandler.NewAuthHandler(authUc, log)
	authMiddleware := httpHandler.NewAuthMiddleware(authUc)

	// Map routes
	httpHandler.MapRoutes(router, chatH, fileH, authH, authMiddleware)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info("HTTP server is running", zap.String("port", port))

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
