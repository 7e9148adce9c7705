package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/ai"
	"github.com/nvalmar/luma/internal/config"
	"github.com/nvalmar/luma/internal/db"
	"github.com/nvalmar/luma/internal/embedding"
	"github.com/nvalmar/luma/internal/filestore"
	"github.com/nvalmar/luma/internal/handler"
	"github.com/nvalmar/luma/internal/job"
	"github.com/nvalmar/luma/internal/memory"
	"github.com/nvalmar/luma/internal/middleware"
	"github.com/nvalmar/luma/internal/rag"
	"github.com/nvalmar/luma/internal/repo"
	"github.com/nvalmar/luma/internal/schedule"
	"github.com/nvalmar/luma/internal/service"
	"github.com/nvalmar/luma/internal/websearch"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "luma",
		Short: "luma assistant backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run luma server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func modelName(pc config.ProviderConfig) (string, error) {
	name, _ := pc.Args["model"].(string)
	if name == "" {
		return "", fmt.Errorf("provider %s: args.model is required", pc.Provider)
	}
	return name, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("chat_provider", cfg.AI.Chat.Provider),
		zap.String("embed_provider", cfg.AI.Embedding.Provider),
	)

	userRepo := repo.NewUserRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	logRepo := repo.NewProcessingLogRepo(conn)
	convRepo := repo.NewConversationRepo(conn)
	msgRepo := repo.NewMessageRepo(conn)
	semanticRepo := repo.NewSemanticMemoryRepo(conn)
	episodicRepo := repo.NewEpisodicMemoryRepo(conn)
	summaryRepo := repo.NewConversationSummaryRepo(conn)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	chatProvider, err := ai.NewChatProvider(cfg.AI.Chat.Provider, cfg.AI.Chat.Args)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	chatModelName, err := modelName(cfg.AI.Chat)
	if err != nil {
		return err
	}
	aiTimeout := time.Duration(cfg.AI.TimeoutSec) * time.Second
	chatModel := ai.WithChatTimeout(ai.NewChatModel(chatProvider, chatModelName), aiTimeout)

	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embedding.Provider, cfg.AI.Embedding.Args)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	embedModelName, err := modelName(cfg.AI.Embedding)
	if err != nil {
		return err
	}
	embedModel := ai.WithEmbedTimeout(ai.NewEmbedModel(embedProvider, embedModelName), aiTimeout)

	gen := embedding.NewGenerator(embedModel, cacheRepo)
	gen.Warmup(ctx)

	indexer := rag.NewIndexer(docRepo, chunkRepo, logRepo, store, gen)
	retriever := rag.NewRetriever(chunkRepo, gen)

	semanticMem := memory.NewSemanticMemory(semanticRepo, gen)
	episodicMem := memory.NewEpisodicMemory(episodicRepo, gen)
	convMem := memory.NewConversationMemory(summaryRepo)

	var searcher websearch.ISearcher = websearch.Disabled{}
	if cfg.WebSearch.Enable {
		searcher = websearch.NewDuckDuckGo(time.Duration(cfg.WebSearch.TimeoutSec)*time.Second, cfg.WebSearch.MaxResults)
	}

	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	userService := service.NewUserService(userRepo)
	documentService := service.NewDocumentService(docRepo, chunkRepo, logRepo, store, indexer)
	summaryService := service.NewSummaryService(chatModel)
	chatService := service.NewChatService(convRepo, msgRepo, userRepo,
		semanticMem, episodicMem, convMem,
		retriever, searcher, summaryService,
		chatModel, cfg.Chat.BookingLink)

	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, 30), "0 3 * * *"); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewDocumentRequeueJob(documentService), "*/10 * * * *"); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Chat:      handler.NewChatHandler(chatService),
		Documents: handler.NewDocumentHandler(documentService),
		Users:     handler.NewUserHandler(userService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/chat/send/stream"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
