package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quka-ai/daybook/app/store/sqlstore"
	"github.com/quka-ai/daybook/pkg/assistant"
	"github.com/quka-ai/daybook/pkg/journal"
	"github.com/quka-ai/daybook/pkg/media/upload"
	"github.com/quka-ai/daybook/pkg/object-storage/s3"
	"github.com/quka-ai/daybook/pkg/utils"
)

type Core struct {
	cfg CoreConfig

	stores     func() *sqlstore.Provider
	httpEngine *gin.Engine
	storage    *s3.S3
	uploader   *upload.Uploader
	assistant  *assistant.Assistant
	redis      redis.UniversalClient

	publicKey  []byte
	privateKey []byte

	metrics *Metrics
	limiters
}

func MustSetupCore(cfg CoreConfig) *Core {
	setupLogger(cfg.Log)
	utils.SetupIDWorker(1)

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("daybook", "core"),
		httpEngine: gin.New(),
		limiters:   newLimiters(),
	}

	// setup store
	setupSqlStore(core)
	setupObjectStorage(core)
	setupRedis(core)
	setupAssistant(core)
	mustLoadKeys(core)

	return core
}

func setupLogger(cfg Log) {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    500, // megabytes
			MaxBackups: 3,
			MaxAge:     28,   //days
			Compress:   true, // disabled by default
		}
	}
	l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(l)
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	// 执行数据库表初始化
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	slog.Debug("setupSqlStore done")
}

func setupObjectStorage(core *Core) {
	cfg := core.cfg.ObjectStorage
	if cfg.S3 == nil {
		slog.Warn("object storage is not configured, media upload disabled")
		return
	}
	if cfg.Driver != "" && cfg.Driver != "s3" {
		panic(fmt.Sprintf("unsupported object storage driver: %s", cfg.Driver))
	}

	core.storage = s3.NewS3Client(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKey, cfg.S3.SecretKey,
		s3.WithPathStyle(cfg.S3.UsePathStyle),
		s3.WithStaticDomain(cfg.StaticDomain))
	core.uploader = upload.New(core.storage,
		upload.WithTimeout(core.cfg.Media.UploadTimeoutDuration()),
		upload.WithObserver(core.metrics.ObserveUpload))
}

func setupRedis(core *Core) {
	cfg := core.cfg.Redis
	if !cfg.Enabled() {
		return
	}

	opts := &redis.UniversalOptions{
		Addrs:       []string{cfg.Addr},
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: secondsOr(cfg.DialTimeout, 5*time.Second),
	}
	if cfg.Cluster {
		// 多个地址时 NewUniversalClient 返回集群客户端
		opts.Addrs = cfg.ClusterAddrs
		opts.DB = 0
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// 缓存不可用时不影响主流程
		slog.Error("failed to connect redis, cache disabled", slog.Any("addrs", opts.Addrs), slog.String("error", err.Error()))
		_ = client.Close()
		return
	}
	core.redis = client
}

func setupAssistant(core *Core) {
	var driver assistant.Completer = assistant.ScriptedDriver{Delay: time.Second}
	if core.cfg.AI.Token != "" {
		driver = assistant.NewOpenAIDriver(core.cfg.AI.Token, core.cfg.AI.Endpoint, core.cfg.AI.Model)
	} else {
		slog.Info("ai token is not configured, using scripted assistant")
	}

	core.assistant = assistant.New(driver,
		assistant.WithTimeout(core.cfg.AI.TimeoutDuration()),
		assistant.WithObserver(core.metrics.ObserveAssistant))
}

func mustLoadKeys(core *Core) {
	read := func(path string) []byte {
		if path == "" {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			panic(fmt.Errorf("failed to read jwt key %s: %w", path, err))
		}
		return raw
	}
	core.publicKey = read(core.cfg.Security.JWTPublicKey)
	core.privateKey = read(core.cfg.Security.JWTPrivateKey)
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Assistant() *assistant.Assistant {
	return s.assistant
}

// Uploader returns nil when no object storage is configured.
func (s *Core) Uploader() *upload.Uploader {
	return s.uploader
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

// Cache returns nil when redis is disabled.
func (s *Core) Cache() *Cache {
	if s.redis == nil {
		return nil
	}
	return NewCache(s.redis, s.cfg.Redis.KeyPrefix)
}

func (s *Core) PublicKey() []byte {
	return s.publicKey
}

func (s *Core) PrivateKey() []byte {
	return s.privateKey
}

// NewJournalStore builds a session scoped entry store backed by the entry table.
func (s *Core) NewJournalStore(opts ...journal.Option) *journal.Store {
	base := []journal.Option{
		journal.WithTimeout(s.cfg.Journal.RemoteTimeoutDuration()),
		journal.WithLocation(s.cfg.Journal.Location()),
	}
	if s.uploader != nil {
		base = append(base, journal.WithUploader(s.uploader))
	}
	return journal.NewStore(s.Store().EntryStore(), append(base, opts...)...)
}
