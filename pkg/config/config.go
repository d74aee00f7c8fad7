// Package config aggregates every environment-variable knob from the
// external-interfaces table into one typed struct, loaded once at process
// start the way cmd/warren reads its flags up front.
package config

import (
	"time"

	"github.com/enkryptcom/enkrypt-backend/internal/envconfig"
)

// StorageDriver selects the blob store backend.
type StorageDriver string

const (
	StorageFS StorageDriver = "FS"
	StorageS3 StorageDriver = "S3"
)

type StorageConfig struct {
	Driver StorageDriver

	FilesystemRootDirPath string
	FilesystemTmpDirPath  string

	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UseSSL          bool

	S3Bucket   string
	S3Region   string
	S3RootPath string

	S3RequestHandlerTimeout   time.Duration
	S3RequestHandlerKeepAlive time.Duration
	S3AgentMaxSockets         int
	S3AgentKeepAlive          bool
	S3AgentTCPNoDelay         bool
}

type APIConfig struct {
	MaintenanceMode bool
	OriginWhitelist []string

	HTTPHost        string
	HTTPPort        int
	HTTPTrustProxy  bool

	HTTPServerKeepAlive     bool
	HTTPServerKeepAliveMs   time.Duration
	HTTPMaxHeaderSize       int64
	HTTPTCPNoDelay          bool

	ReqSoftTimeout         time.Duration
	ReqSoftTimeoutInterval time.Duration
	ReqHardTimeout         time.Duration

	ReqBodySizeLimitBytes int64

	DebugErrors bool
	Compression bool

	ExtraLatencyBaseMs   int
	ExtraLatencyJitterMs int

	ExtraRandomErrorRate       float64
	ExtraRandomErrorBaseMs     int
	ExtraRandomErrorJitterMs   int
}

type ClusterConfig struct {
	Standalone bool

	MinWorkers int
	MaxWorkers int

	EstimatedMemoryPrimaryBytes int64
	EstimatedMemoryWorkerBytes  int64
	EstimatedMemoryMaxBytes     int64
	MemoryReservedBytes         int64

	AddWorkerDebounce time.Duration
}

type PrometheusConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Compression bool
	LogLevel    string
}

type ShutdownConfig struct {
	Signals                  []string
	SignalCountAccelerated   int
	SignalCountImmediate     int
}

type Config struct {
	Storage    StorageConfig
	API        APIConfig
	Cluster    ClusterConfig
	Prometheus PrometheusConfig
	Shutdown   ShutdownConfig
}

// Load reads the full configuration from the environment via lookup
// (os.LookupEnv in production, a map in tests).
func Load(lookup envconfig.Lookup) Config {
	return Config{
		Storage: StorageConfig{
			Driver:                StorageDriver(envconfig.String(lookup, "STORAGE_DRIVER", string(StorageFS))),
			FilesystemRootDirPath: envconfig.String(lookup, "STORAGE_FILESYSTEM_ROOT_DIRPATH", "./data/backups"),
			FilesystemTmpDirPath:  envconfig.String(lookup, "STORAGE_FILESYSTEM_TMP_DIRPATH", ""),

			S3Endpoint:        envconfig.String(lookup, "STORAGE_S3_ENDPOINT", "s3.amazonaws.com"),
			S3AccessKeyID:     envconfig.String(lookup, "STORAGE_S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: envconfig.String(lookup, "STORAGE_S3_SECRET_ACCESS_KEY", ""),
			S3UseSSL:          envconfig.Bool(lookup, "STORAGE_S3_USE_SSL", true),

			S3Bucket:   envconfig.String(lookup, "STORAGE_S3_BUCKET_NAME", ""),
			S3Region:   envconfig.String(lookup, "STORAGE_S3_REGION", ""),
			S3RootPath: envconfig.String(lookup, "STORAGE_S3_ROOT_PATH", ""),

			S3RequestHandlerTimeout:   envconfig.Duration(lookup, "STORAGE_S3_REQUEST_HANDLER_TIMEOUT", 30*time.Second),
			S3RequestHandlerKeepAlive: envconfig.Duration(lookup, "STORAGE_S3_REQUEST_HANDLER_KEEP_ALIVE", 30*time.Second),
			S3AgentMaxSockets:         envconfig.Int(lookup, "STORAGE_S3_AGENT_MAX_SOCKETS", 50),
			S3AgentKeepAlive:          envconfig.Bool(lookup, "STORAGE_S3_AGENT_KEEP_ALIVE", true),
			S3AgentTCPNoDelay:         envconfig.Bool(lookup, "STORAGE_S3_AGENT_TCP_NODELAY", true),
		},
		API: APIConfig{
			MaintenanceMode: envconfig.Bool(lookup, "API_MAINTENANCE_MODE", false),
			OriginWhitelist: envconfig.StringSlice(lookup, "API_ORIGIN_WHITELIST", nil),

			HTTPHost:       envconfig.String(lookup, "API_HTTP_HOST", "0.0.0.0"),
			HTTPPort:       envconfig.Int(lookup, "API_HTTP_PORT", 8080),
			HTTPTrustProxy: envconfig.Bool(lookup, "API_HTTP_TRUST_PROXY", false),

			HTTPServerKeepAlive:   envconfig.Bool(lookup, "API_HTTP_SERVER_KEEP_ALIVE", true),
			HTTPServerKeepAliveMs: envconfig.Duration(lookup, "API_HTTP_SERVER_KEEP_ALIVE_TIMEOUT", 5*time.Second),
			HTTPMaxHeaderSize:     envconfig.Bytes(lookup, "API_HTTP_SERVER_MAX_HEADER_SIZE", 16*1024),
			HTTPTCPNoDelay:        envconfig.Bool(lookup, "API_HTTP_SERVER_TCP_NODELAY", true),

			ReqSoftTimeout:         envconfig.Duration(lookup, "API_HTTP_REQ_SOFT_TIMEOUT", 10*time.Second),
			ReqSoftTimeoutInterval: envconfig.Duration(lookup, "API_HTTP_REQ_SOFT_TIMEOUT_INTERVAL", 1*time.Second),
			ReqHardTimeout:         envconfig.Duration(lookup, "API_HTTP_REQ_HARD_TIMEOUT", 30*time.Second),

			ReqBodySizeLimitBytes: envconfig.Bytes(lookup, "API_HTTP_REQ_BODY_SIZE_LIMIT", 100*1024),

			DebugErrors: envconfig.Bool(lookup, "API_HTTP_DEBUG_ERRORS", false),
			Compression: envconfig.Bool(lookup, "API_HTTP_COMPRESSION", true),

			ExtraLatencyBaseMs:   envconfig.Int(lookup, "API_HTTP_EXTRA_LATENCY_BASE", 0),
			ExtraLatencyJitterMs: envconfig.Int(lookup, "API_HTTP_EXTRA_LATENCY_JITTER", 0),

			ExtraRandomErrorRate:     envconfig.Rate(lookup, "API_HTTP_EXTRA_RANDOM_ERROR_RATE", 0),
			ExtraRandomErrorBaseMs:   envconfig.Int(lookup, "API_HTTP_EXTRA_RANDOM_ERROR_BASE", 0),
			ExtraRandomErrorJitterMs: envconfig.Int(lookup, "API_HTTP_EXTRA_RANDOM_ERROR_JITTER", 0),
		},
		Cluster: ClusterConfig{
			Standalone: envconfig.Bool(lookup, "API_CLUSTER_STANDALONE", true),

			MinWorkers: envconfig.Int(lookup, "API_CLUSTER_MIN_WORKERS", 1),
			MaxWorkers: envconfig.Int(lookup, "API_CLUSTER_MAX_WORKERS", 4),

			EstimatedMemoryPrimaryBytes: envconfig.Bytes(lookup, "API_CLUSTER_ESTIMATED_MEMORY_PRIMARY", 64*1024*1024),
			EstimatedMemoryWorkerBytes:  envconfig.Bytes(lookup, "API_CLUSTER_ESTIMATED_MEMORY_WORKER", 128*1024*1024),
			EstimatedMemoryMaxBytes:     envconfig.Bytes(lookup, "API_CLUSTER_ESTIMATED_MEMORY_MAX", 1024*1024*1024),
			MemoryReservedBytes:         envconfig.Bytes(lookup, "API_CLUSTER_ESTIMATED_MEMORY_RESERVED", 64*1024*1024),

			AddWorkerDebounce: envconfig.Duration(lookup, "API_CLUSTER_ADD_WORKER_DEBOUNCE", 1*time.Second),
		},
		Prometheus: PrometheusConfig{
			Enabled:     envconfig.Bool(lookup, "API_PROMETHEUS_ENABLED", true),
			Host:        envconfig.String(lookup, "API_PROMETHEUS_HOST", "0.0.0.0"),
			Port:        envconfig.Int(lookup, "API_PROMETHEUS_PORT", 9090),
			Compression: envconfig.Bool(lookup, "API_PROMETHEUS_COMPRESSION", false),
			LogLevel:    envconfig.String(lookup, "API_PROMETHEUS_LOG_LEVEL", "info"),
		},
		Shutdown: ShutdownConfig{
			Signals:                envconfig.StringSlice(lookup, "SHUTDOWN_SIGNALS", []string{"SIGTERM", "SIGINT"}),
			SignalCountAccelerated: envconfig.Int(lookup, "SHUTDOWN_SIGNAL_COUNT_ACCELERATED", 5),
			SignalCountImmediate:   envconfig.Int(lookup, "SHUTDOWN_SIGNAL_COUNT_IMMEDIATE", 10),
		},
	}
}
