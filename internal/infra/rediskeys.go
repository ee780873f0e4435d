package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "medipredict"
)

// Ключи кэша
const (
	RedisKeyExplanationPrefix = RedisNamespace + ":explain:device:"
)

// ExplanationCacheKey: ключ кэша объяснения для устройства.
func ExplanationCacheKey(deviceID string) string {
	return fmt.Sprintf("%s%s", RedisKeyExplanationPrefix, deviceID)
}
