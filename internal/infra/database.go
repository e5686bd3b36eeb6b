// Package infra は外部サービスとの接続を提供する。
package infra

import (
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// NewDB はgormによるデータベース接続を初期化する。dsnが "sqlite:" で始まる場合は
// ローカル開発・テスト用のsqliteドライバを、それ以外はmysqlドライバを使う。
func NewDB(dsn string, otelEnabled bool) (*gorm.DB, error) {
	dialector := dialectorFor(dsn)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if otelEnabled {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 接続プール設定
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	if rest, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		return sqlite.Open(rest)
	}
	return mysql.Open(dsn)
}
