package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Collector CollectorConfig `mapstructure:"collector"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
	GrpcPort string `mapstructure:"grpc_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

// CollectorConfig drives deposit ingestion, collection scheduling and node access.
type CollectorConfig struct {
	DepositTopic      string        `mapstructure:"deposit_topic"`
	ConsumerName      string        `mapstructure:"consumer_name"`
	ScheduleSpec      string        `mapstructure:"schedule_spec"`  // cron spec for collection scheduling
	GasCheckSpec      string        `mapstructure:"gas_check_spec"` // cron spec for the gas price guard
	CollectCooldown   time.Duration `mapstructure:"collect_cooldown"`
	BatchSize         int           `mapstructure:"batch_size"`
	FeeLockTTL        time.Duration `mapstructure:"fee_lock_ttl"`
	WorkerConcurrency int           `mapstructure:"worker_concurrency"`
	RPCOpenTimeout    time.Duration `mapstructure:"rpc_open_timeout"`
	RPCReadTimeout    time.Duration `mapstructure:"rpc_read_timeout"`
	RPCIdleTimeout    time.Duration `mapstructure:"rpc_idle_timeout"`
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// COLLECTOR_SCHEDULE_SPEC overrides collector.schedule_spec
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// PostgresDSN builds the gorm DSN from the db section.
func (c DBConfig) PostgresDSN() string {
	return "host=" + c.Host + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.Name + " port=" + c.Port + " sslmode=disable TimeZone=UTC"
}

// MigrateURL builds the URL form expected by golang-migrate.
func (c DBConfig) MigrateURL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")
	viper.SetDefault("app.grpc_port", "50051")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "collector")
	viper.SetDefault("db.password", "collector")
	viper.SetDefault("db.name", "deposit_collector")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "deposit_collector")

	viper.SetDefault("collector.deposit_topic", "deposit.notifications")
	viper.SetDefault("collector.consumer_name", "collector-0")
	viper.SetDefault("collector.schedule_spec", "@every 1m")
	viper.SetDefault("collector.gas_check_spec", "@every 30s")
	viper.SetDefault("collector.collect_cooldown", "5m")
	viper.SetDefault("collector.batch_size", 100)
	viper.SetDefault("collector.fee_lock_ttl", "2m")
	viper.SetDefault("collector.worker_concurrency", 10)
	viper.SetDefault("collector.rpc_open_timeout", "1s")
	viper.SetDefault("collector.rpc_read_timeout", "5s")
	viper.SetDefault("collector.rpc_idle_timeout", "5s")
}
