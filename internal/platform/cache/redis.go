package cache

import (
	"context"
	"todo_collab/internal/platform/config"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	if _, err := RDB.Ping(ctx).Result(); err != nil {
		log.Fatal("Could not connect to Redis", "err", err)
	}
	log.Info("Successfully connected to Redis")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		log.Info("Redis connection closed")
	}
}
