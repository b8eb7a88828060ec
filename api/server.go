package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"lawha/adapters/auth"
	redisAdapter "lawha/adapters/redis"
	internalS3 "lawha/adapters/s3"
	"lawha/adapters/whatsapp"
	"lawha/engine"
)

type ServerImpl struct {
	db          *gorm.DB
	redisClient *redis.Client
	imageStore  *internalS3.ImageStore
	htmlChecker *bluemonday.Policy
	publisher   redisAdapter.IEventPublisher
	checkout    *whatsapp.Builder

	settings   *engine.Settings
	inventory  *engine.Inventory
	limiter    *engine.Limiter
	scheduler  *engine.Scheduler
	lifecycle  *engine.Lifecycle
	auction    *engine.Auction
	reconciler *engine.Reconciler

	wg         sync.WaitGroup
	cancelFunc context.CancelFunc

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化S3客戶端
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	imageStore, err := internalS3.NewImageStore(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create image store, err=%w", op, err)
	}

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// 初始化事件發布器
	publisher, err := redisAdapter.NewEventPublisher(redisClient, config.Redis.StreamKeys.Events)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create event publisher, err=%w", op, err)
	}

	// 初始化商店時區
	location, err := time.LoadLocation(config.Store.Timezone)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load store timezone, err=%w", op, err)
	}

	// 初始化核心引擎
	settings := engine.NewSettings(db)
	inventory := engine.NewInventory(db)
	limiter := engine.NewLimiter(db, location)
	scheduler := engine.NewScheduler(db, settings, location)
	lifecycleOpts := []engine.LifecycleOption{}
	if config.Store.HoldTTL > 0 {
		lifecycleOpts = append(lifecycleOpts, engine.WithHoldTTL(config.Store.HoldTTL))
	}
	lifecycle := engine.NewLifecycle(db, inventory, limiter, scheduler, settings, lifecycleOpts...)
	auction := engine.NewAuction(db, redisAdapter.NewBidLockProvider(redisClient))
	reconciler := engine.NewReconciler(db, inventory)

	return &ServerImpl{
		db:          db,
		redisClient: redisClient,
		imageStore:  imageStore,
		htmlChecker: bluemonday.UGCPolicy(),
		publisher:   publisher,
		checkout:    whatsapp.NewBuilder(config.Store.WhatsappNumber),
		settings:    settings,
		inventory:   inventory,
		limiter:     limiter,
		scheduler:   scheduler,
		lifecycle:   lifecycle,
		auction:     auction,
		reconciler:  reconciler,
		config:      config,
	}, nil
}

func (impl *ServerImpl) Start() {
	// 啟動事件發布器
	impl.publisher.Start()
	// 啟動一個worker定期回收到期的庫存保留
	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel
	interval := impl.config.Store.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	slog.Info("Start hold sweep worker", slog.Duration("interval", interval))
	impl.wg.Add(1)
	go func() {
		logger := slog.Default().With(slog.String("caller", "HoldSweep"))
		defer impl.wg.Done()
		defer slog.Info("Hold sweep worker stopped")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				restored, err := impl.reconciler.RestoreExpiredHolds(ctx)
				if err != nil {
					logger.Error("Fail to restore expired holds", slog.Any("error", err))
					continue
				}
				if restored > 0 {
					logger.Info("Restored expired holds", slog.Int("count", restored))
				}
			}
		}
	}()
}

func (impl *ServerImpl) Close() {
	// 關閉worker
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	impl.wg.Wait()
	// 關閉事件發布器
	impl.publisher.Close()
	// 關閉Redis連線
	if err := impl.redisClient.Close(); err != nil {
		slog.Warn("Fail to close redis client", slog.Any("error", err))
	}
}

// RegisterRoutes 掛載所有路由，後台路徑套用管理員驗證
func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	router.GET("/artworks", impl.ListArtworks)
	router.GET("/artworks/:slug", impl.GetArtworkBySlug)
	router.GET("/artworks/:slug/bids", impl.ListArtworkBids)
	router.POST("/orders", impl.CreateOrder)
	router.POST("/bids", impl.PlaceBid)
	router.POST("/analytics", impl.RecordAnalyticsEvent)
	router.POST("/restore-holds", impl.RestoreHolds)

	admin := router.Group("/admin", auth.AdminRequired([]byte(impl.config.Auth.AdminSecret)))
	admin.POST("/artworks", impl.CreateArtwork)
	admin.PATCH("/artworks/:id", impl.UpdateArtwork)
	admin.GET("/orders", impl.ListOrders)
	admin.POST("/orders/:id/confirm", impl.ConfirmOrder)
	admin.POST("/orders/:id/ship", impl.ShipOrder)
	admin.POST("/orders/:id/refund", impl.RefundOrder)
	admin.POST("/auctions/:id/close", impl.CloseAuction)
	admin.GET("/capacity", impl.GetCapacity)
	admin.POST("/capacity/settings", impl.UpdateStoreSettings)
	admin.GET("/analytics", impl.AnalyticsSummary)
	admin.POST("/images", impl.UploadImage)
}
