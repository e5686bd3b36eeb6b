// Package main はAPIサーバーのエントリポイント。
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/readium/lcp-crypto-core/config"
	"github.com/readium/lcp-crypto-core/internal/handler"
	"github.com/readium/lcp-crypto-core/internal/infra"
	"github.com/readium/lcp-crypto-core/internal/repository"
	"github.com/readium/lcp-crypto-core/internal/usecase"
)

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	// 設定読み込み
	cfg := config.Load()

	// ログレベル設定
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// トレース情報付きロガーを設定
	infra.SetupLogger(cfg, logLevel)

	// 監査ログDB初期化（未設定ならメモリ上でのみ動作し、監査は記録されない）
	var auditService *usecase.AuditService
	if cfg.AuditDatabaseURL != "" {
		db, err := infra.NewDB(cfg.AuditDatabaseURL, cfg.OtelEnabled)
		if err != nil {
			slog.Error("failed to init audit database", "error", err)
			os.Exit(1)
		}
		auditService = usecase.NewAuditService(repository.NewAuditRepository(db))
	} else {
		slog.Warn("AUDIT_DATABASE_URL not set, license verification attempts will not be persisted")
	}

	// ルート証明書読み込み（すべての検証リクエストに対する信頼アンカー）
	if cfg.RootCertificatePath == "" {
		slog.Error("ROOT_CERTIFICATE_PATH is not set")
		os.Exit(1)
	}
	rootCertRaw, err := os.ReadFile(cfg.RootCertificatePath)
	if err != nil {
		slog.Error("failed to read root certificate", "error", err)
		os.Exit(1)
	}

	// DI
	net := infra.NewHTTPNetProvider()
	provider := usecase.NewCryptoProvider(net, cfg.CRLMinRefresh, cfg.CRLMaxRefresh, cfg.CRLHardFailOnUnreachable)
	defer func() {
		if err := provider.Close(); err != nil {
			slog.Error("failed to close crypto provider", "error", err)
		}
	}()

	h := handler.NewVerifyHandler(provider, auditService, string(rootCertRaw))
	router := handler.NewRouter(h)

	// サーバー起動
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: otelhttp.NewHandler(router, "lcp-crypto-core"),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
