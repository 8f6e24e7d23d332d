package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf, err := ParseConfig(raw)
	if err != nil {
		panic(err)
	}
	return conf
}

func ParseConfig(raw []byte) (CoreConfig, error) {
	conf := CoreConfig{}
	if err := toml.Unmarshal(raw, &conf); err != nil {
		return conf, err
	}
	return conf, nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr          string              `toml:"addr"`
	Log           Log                 `toml:"log"`
	Postgres      PGConfig            `toml:"postgres"`
	Redis         RedisConfig         `toml:"redis"`
	ObjectStorage ObjectStorageDriver `toml:"object_storage"`
	AI            AIConfig            `toml:"ai"`
	Security      Security            `toml:"security"`
	Media         MediaConfig         `toml:"media"`
	Journal       JournalConfig       `toml:"journal"`
}

type ObjectStorageDriver struct {
	StaticDomain string    `toml:"static_domain"`
	Driver       string    `toml:"driver"`
	S3           *S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// AIConfig 为空 token 时使用内置的脚本化回复
type AIConfig struct {
	Token    string `toml:"token"`
	Endpoint string `toml:"endpoint"`
	Model    string `toml:"model"`
	Timeout  int    `toml:"timeout"` // 秒
}

func (a AIConfig) TimeoutDuration() time.Duration {
	return secondsOr(a.Timeout, 30*time.Second)
}

type Security struct {
	JWTPublicKey  string `toml:"jwt_public_key"`  // PEM 文件路径
	JWTPrivateKey string `toml:"jwt_private_key"` // PEM 文件路径，仅签发 token 时需要
	TokenTTL      int    `toml:"token_ttl"`       // 秒
}

type MediaConfig struct {
	TimeSliceMs   int   `toml:"time_slice_ms"`
	UploadTimeout int   `toml:"upload_timeout"`  // 秒
	MaxUploadSize int64 `toml:"max_upload_size"` // 字节
}

func (m MediaConfig) TimeSlice() time.Duration {
	if m.TimeSliceMs <= 0 {
		return time.Second
	}
	return time.Duration(m.TimeSliceMs) * time.Millisecond
}

func (m MediaConfig) UploadTimeoutDuration() time.Duration {
	return secondsOr(m.UploadTimeout, time.Minute)
}

func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadSize <= 0 {
		return 200 << 20
	}
	return m.MaxUploadSize
}

type JournalConfig struct {
	RemoteTimeout    int    `toml:"remote_timeout"` // 秒
	DefaultWallpaper string `toml:"default_wallpaper"`
	Timezone         string `toml:"timezone"`
}

func (j JournalConfig) RemoteTimeoutDuration() time.Duration {
	return secondsOr(j.RemoteTimeout, 15*time.Second)
}

// Location 按配置的时区计算日历日，未配置或无效时使用本地时区
func (j JournalConfig) Location() *time.Location {
	if j.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(j.Timezone)
	if err != nil {
		slog.Warn("invalid journal timezone, fallback to local", slog.String("timezone", j.Timezone), slog.String("error", err.Error()))
		return time.Local
	}
	return loc
}

func secondsOr(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Second
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("DAYBOOK_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.ObjectStorage.FromENV()
	c.AI.FromENV()
	c.Security.FromENV()
	c.Media.TimeSliceMs = envInt("DAYBOOK_MEDIA_TIME_SLICE_MS")
	c.Media.UploadTimeout = envInt("DAYBOOK_MEDIA_UPLOAD_TIMEOUT")
	c.Media.MaxUploadSize = int64(envInt("DAYBOOK_MEDIA_MAX_UPLOAD_SIZE"))
	c.Journal.RemoteTimeout = envInt("DAYBOOK_JOURNAL_REMOTE_TIMEOUT")
	c.Journal.DefaultWallpaper = os.Getenv("DAYBOOK_JOURNAL_DEFAULT_WALLPAPER")
	c.Journal.Timezone = os.Getenv("DAYBOOK_JOURNAL_TIMEZONE")
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("DAYBOOK_API_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port，为空则不启用
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	// 集群模式配置
	Cluster      bool     `toml:"cluster"`
	ClusterAddrs []string `toml:"cluster_addrs"`

	PoolSize    int `toml:"pool_size"`    // 连接池大小，默认10
	DialTimeout int `toml:"dial_timeout"` // 连接超时(秒)，默认5

	KeyPrefix string `toml:"key_prefix"` // Redis键前缀，用于隔离不同环境/应用
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("DAYBOOK_REDIS_ADDR")
	r.Password = os.Getenv("DAYBOOK_REDIS_PASSWORD")
	r.DB = envInt("DAYBOOK_REDIS_DB")
	r.KeyPrefix = os.Getenv("DAYBOOK_REDIS_KEY_PREFIX")
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != "" || (r.Cluster && len(r.ClusterAddrs) > 0)
}

func (o *ObjectStorageDriver) FromENV() {
	o.StaticDomain = os.Getenv("DAYBOOK_OBJECT_STORAGE_STATIC_DOMAIN")
	bucket := os.Getenv("DAYBOOK_S3_BUCKET")
	if bucket == "" {
		return
	}
	o.Driver = "s3"
	o.S3 = &S3Config{
		Bucket:       bucket,
		Region:       os.Getenv("DAYBOOK_S3_REGION"),
		Endpoint:     os.Getenv("DAYBOOK_S3_ENDPOINT"),
		AccessKey:    os.Getenv("DAYBOOK_S3_ACCESS_KEY"),
		SecretKey:    os.Getenv("DAYBOOK_S3_SECRET_KEY"),
		UsePathStyle: os.Getenv("DAYBOOK_S3_USE_PATH_STYLE") == "true",
	}
}

func (a *AIConfig) FromENV() {
	a.Token = os.Getenv("DAYBOOK_AI_TOKEN")
	a.Endpoint = os.Getenv("DAYBOOK_AI_ENDPOINT")
	a.Model = os.Getenv("DAYBOOK_AI_MODEL")
	a.Timeout = envInt("DAYBOOK_AI_TIMEOUT")
}

func (s *Security) FromENV() {
	s.JWTPublicKey = os.Getenv("DAYBOOK_JWT_PUBLIC_KEY")
	s.JWTPrivateKey = os.Getenv("DAYBOOK_JWT_PRIVATE_KEY")
	s.TokenTTL = envInt("DAYBOOK_JWT_TOKEN_TTL")
}

func (s Security) TokenTTLDuration() time.Duration {
	return secondsOr(s.TokenTTL, 7*24*time.Hour)
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("DAYBOOK_API_LOG_LEVEL")
	l.Path = os.Getenv("DAYBOOK_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
