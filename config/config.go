// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Port     string
	LogLevel string

	// AuditDatabaseURL は検証結果の監査ログを記録するデータベースのDSN。
	AuditDatabaseURL string
	MigrationsDir    string

	// RootCertificatePath はトラストアンカーとなるルート証明書(base64 DER)のパス。
	RootCertificatePath string

	// CRLMinRefresh/CRLMaxRefresh はCRL再取得間隔のクランプ範囲。
	CRLMinRefresh            time.Duration
	CRLMaxRefresh            time.Duration
	CRLHardFailOnUnreachable bool

	OtelEnabled      bool
	OtelEndpoint     string
	OtelServiceName  string
	OtelSamplingRate float64
}

// Load は環境変数から設定を読み込む。
func Load() *Config {
	return &Config{
		Port:                     getEnv("PORT", "8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "INFO"),
		AuditDatabaseURL:         os.Getenv("AUDIT_DATABASE_URL"),
		MigrationsDir:            getEnv("MIGRATIONS_DIR", "migrations"),
		RootCertificatePath:      os.Getenv("ROOT_CERTIFICATE_PATH"),
		CRLMinRefresh:            getEnvDuration("CRL_MIN_REFRESH", time.Hour),
		CRLMaxRefresh:            getEnvDuration("CRL_MAX_REFRESH", 24*time.Hour),
		CRLHardFailOnUnreachable: getEnvBool("CRL_HARD_FAIL_ON_UNREACHABLE", false),
		OtelEnabled:              getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:             getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:          getEnv("OTEL_SERVICE_NAME", "lcp-crypto-core"),
		OtelSamplingRate:         getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}
