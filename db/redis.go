// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// Cache key families. Entries are derived, non-authoritative snapshots; they
// are invalidated explicitly on mutation and otherwise expire with the TTL.
func UserPermissionsKey(userID string) string { return fmt.Sprintf("user:permissions:%s", userID) }
func UserRolesKey(userID string) string       { return fmt.Sprintf("user:roles:%s", userID) }
func RolePermissionsKey(roleID string) string { return fmt.Sprintf("role:permissions:%s", roleID) }

func cacheTTL() time.Duration {
	return viper.GetDuration("redis.defaultCacheTTL")
}

func CacheUserPermissions(ctx context.Context, userID string, grants []model.UserPermission) error {
	payload, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("failed to marshal user permissions: %w", err)
	}

	key := UserPermissionsKey(userID)
	if err := RedisClient.Set(ctx, key, payload, cacheTTL()).Err(); err != nil {
		return fmt.Errorf("failed to cache user permissions: %w", err)
	}

	logger.Debug("User permissions cached", zap.String("userID", userID))
	return nil
}

func GetCachedUserPermissions(ctx context.Context, userID string) ([]model.UserPermission, bool, error) {
	key := UserPermissionsKey(userID)
	payload, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("User permissions not found in cache", zap.String("userID", userID))
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to get user permissions from cache: %w", err)
	}

	var grants []model.UserPermission
	if err := json.Unmarshal([]byte(payload), &grants); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal user permissions: %w", err)
	}

	logger.Debug("User permissions retrieved from cache", zap.String("userID", userID))
	return grants, true, nil
}

func DeleteCachedUserPermissions(ctx context.Context, userID string) error {
	if err := RedisClient.Del(ctx, UserPermissionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete user permissions from cache: %w", err)
	}
	logger.Debug("User permissions deleted from cache", zap.String("userID", userID))
	return nil
}

func CacheUserRoles(ctx context.Context, userID string, assignments []model.UserRole) error {
	payload, err := json.Marshal(assignments)
	if err != nil {
		return fmt.Errorf("failed to marshal user roles: %w", err)
	}

	key := UserRolesKey(userID)
	if err := RedisClient.Set(ctx, key, payload, cacheTTL()).Err(); err != nil {
		return fmt.Errorf("failed to cache user roles: %w", err)
	}

	logger.Debug("User roles cached", zap.String("userID", userID))
	return nil
}

func GetCachedUserRoles(ctx context.Context, userID string) ([]model.UserRole, bool, error) {
	key := UserRolesKey(userID)
	payload, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("User roles not found in cache", zap.String("userID", userID))
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to get user roles from cache: %w", err)
	}

	var assignments []model.UserRole
	if err := json.Unmarshal([]byte(payload), &assignments); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal user roles: %w", err)
	}

	logger.Debug("User roles retrieved from cache", zap.String("userID", userID))
	return assignments, true, nil
}

func DeleteCachedUserRoles(ctx context.Context, userID string) error {
	if err := RedisClient.Del(ctx, UserRolesKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete user roles from cache: %w", err)
	}
	logger.Debug("User roles deleted from cache", zap.String("userID", userID))
	return nil
}

func CacheRolePermissions(ctx context.Context, roleID string, links []model.RolePermission) error {
	payload, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to marshal role permissions: %w", err)
	}

	key := RolePermissionsKey(roleID)
	if err := RedisClient.Set(ctx, key, payload, cacheTTL()).Err(); err != nil {
		return fmt.Errorf("failed to cache role permissions: %w", err)
	}

	logger.Debug("Role permissions cached", zap.String("roleID", roleID))
	return nil
}

func GetCachedRolePermissions(ctx context.Context, roleID string) ([]model.RolePermission, bool, error) {
	key := RolePermissionsKey(roleID)
	payload, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Role permissions not found in cache", zap.String("roleID", roleID))
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to get role permissions from cache: %w", err)
	}

	var links []model.RolePermission
	if err := json.Unmarshal([]byte(payload), &links); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal role permissions: %w", err)
	}

	logger.Debug("Role permissions retrieved from cache", zap.String("roleID", roleID))
	return links, true, nil
}

func DeleteCachedRolePermissions(ctx context.Context, roleID string) error {
	if err := RedisClient.Del(ctx, RolePermissionsKey(roleID)).Err(); err != nil {
		return fmt.Errorf("failed to delete role permissions from cache: %w", err)
	}
	logger.Debug("Role permissions deleted from cache", zap.String("roleID", roleID))
	return nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
