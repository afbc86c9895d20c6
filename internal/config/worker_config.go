package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type WorkerConfig struct {
	Environment string
	Redis       WorkerRedisConfig
	Queues      QueueConfig
	Logging     LoggingConfig
}

type WorkerRedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Stream       string
	Group        string
	Consumer     string
	PendingQueue string
}

type QueueConfig struct {
	ClaimInterval time.Duration
	BatchSize     int
}

type LoggingConfig struct {
	Level string
}

func LoadWorker() (*WorkerConfig, error) {
	v := viper.New()
	v.SetConfigName("worker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.SetEnvPrefix("SWAPSHELF_WORKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setWorkerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &cfg, nil
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "swapshelf:events")
	v.SetDefault("redis.group", "swapshelf-workers")
	v.SetDefault("redis.consumer", "worker-1")
	v.SetDefault("redis.pendingqueue", "moderation:pending")

	v.SetDefault("queues.claiminterval", "30s")
	v.SetDefault("queues.batchsize", 10)

	v.SetDefault("logging.level", "info")
}
