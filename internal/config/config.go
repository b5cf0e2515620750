package config

import (
	"time"

	pkgconfig "github.com/weiawesome/vlog-interaction-service/pkg/config"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Reconciler  ReconcilerConfig
	Auth        AuthConfig
	Interaction InteractionConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, mysql, sqlite, memory
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	Debug           bool   `mapstructure:"debug"`
}

type RedisConfig struct {
	Address     string        `mapstructure:"address"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// KafkaConfig leaves Brokers empty to disable event publishing.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Topic      string `mapstructure:"topic"`
	Partitions int    `mapstructure:"partitions"`
}

type ReconcilerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	TopN     int           `mapstructure:"top_n"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	Issuer         string `mapstructure:"issuer"`
	PrivilegedRole string `mapstructure:"privileged_role"`
}

type InteractionConfig struct {
	ViewWindow       time.Duration `mapstructure:"view_window"`
	TxTimeout        time.Duration `mapstructure:"tx_timeout"`
	DedupTimeout     time.Duration `mapstructure:"dedup_timeout"`
	CommentMaxLength int           `mapstructure:"comment_max_length"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

var defaults = map[string]any{
	"server.host":                    "0.0.0.0",
	"server.port":                    8096,
	"database.driver":                "postgres",
	"database.host":                  "localhost",
	"database.port":                  5432,
	"database.user":                  "postgres",
	"database.password":              "postgres",
	"database.dbname":                "postgres",
	"database.sslmode":               "disable",
	"database.file_path":             "./data/interaction.db",
	"database.max_idle_conns":        10,
	"database.max_open_conns":        100,
	"database.conn_max_lifetime":     60,
	"database.debug":                 false,
	"redis.address":                  "localhost:6379",
	"redis.password":                 "",
	"redis.db":                       0,
	"redis.dial_timeout":             "2s",
	"kafka.brokers":                  "",
	"kafka.topic":                    "interaction-events",
	"kafka.partitions":               4,
	"reconciler.enabled":             true,
	"reconciler.interval":            "60s",
	"reconciler.top_n":               100,
	"auth.jwt_secret":                "",
	"auth.issuer":                    "",
	"auth.privileged_role":           "admin",
	"interaction.view_window":        "24h",
	"interaction.tx_timeout":         "5s",
	"interaction.dedup_timeout":      "300ms",
	"interaction.comment_max_length": 500,
	"log.level":                      "info",
	"log.pretty":                     false,
}

var envBindings = map[string]string{
	"server.port":                    "PORT",
	"database.driver":                "DB_DRIVER",
	"database.host":                  "DB_HOST",
	"database.port":                  "DB_PORT",
	"database.user":                  "DB_USER",
	"database.password":              "DB_PASSWORD",
	"database.dbname":                "DB_NAME",
	"database.sslmode":               "DB_SSLMODE",
	"database.file_path":             "DB_FILE_PATH",
	"database.max_idle_conns":        "DB_MAX_IDLE_CONNS",
	"database.max_open_conns":        "DB_MAX_OPEN_CONNS",
	"database.conn_max_lifetime":     "DB_CONN_MAX_LIFETIME",
	"database.debug":                 "DB_DEBUG",
	"redis.address":                  "REDIS_ADDRESS",
	"redis.password":                 "REDIS_PASSWORD",
	"redis.db":                       "REDIS_DB",
	"kafka.brokers":                  "KAFKA_BROKERS",
	"kafka.topic":                    "KAFKA_TOPIC",
	"reconciler.enabled":             "RECONCILER_ENABLED",
	"reconciler.interval":            "RECONCILER_INTERVAL",
	"reconciler.top_n":               "RECONCILER_TOP_N",
	"auth.jwt_secret":                "JWT_SECRET",
	"auth.issuer":                    "JWT_ISSUER",
	"auth.privileged_role":           "PRIVILEGED_ROLE",
	"interaction.view_window":        "VIEW_WINDOW",
	"interaction.tx_timeout":         "TX_TIMEOUT",
	"interaction.dedup_timeout":      "DEDUP_TIMEOUT",
	"interaction.comment_max_length": "COMMENT_MAX_LENGTH",
	"log.level":                      "LOG_LEVEL",
}

// Load reads ./config/config.yaml, if present, over the defaults and applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir string) (*Config, error) {
	v, err := pkgconfig.Load(dir, "config")
	if err != nil {
		return nil, err
	}

	pkgconfig.SetDefaults(v, defaults)
	if err := pkgconfig.BindEnvs(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
