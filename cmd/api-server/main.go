// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delta-admin/internal/api"
	"delta-admin/internal/auth"
	"delta-admin/internal/config"
	"delta-admin/internal/model"
	"delta-admin/internal/pool"
	"delta-admin/internal/remote"
	"delta-admin/internal/storage"
	"delta-admin/pkg/logging"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换 YAML 配置）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "api-server",
	})

	// 初始化审计存储（SQLite，可选）
	var audit *storage.AuditStore
	if cfg.Audit.DBPath != "" {
		var err error
		audit, err = storage.NewAuditStore(cfg.Audit.DBPath)
		if err != nil {
			log.Fatalf("Failed to open audit store: %v", err)
		}
		defer audit.Close()
		log.Printf("Audit store ready [path=%s]", cfg.Audit.DBPath)
	}

	// 初始化节点池（SSH 拨号器 + 池级默认参数）
	p := pool.New(remote.NewSSHDialer(), logger)
	for k, v := range cfg.Pool.Defaults {
		p.SetDefault(model.NodeParam(k), v)
	}
	if cfg.Pool.StartupPause > 0 {
		p.SetStartupPause(cfg.Pool.StartupPause.Std())
	}

	// 初始化认证（JWT_SECRET 未设置时认证关闭）
	authCfg := auth.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		AdminUser:      cfg.Auth.AdminUser,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL.Std(),
	}
	if authCfg.Enabled() {
		if cfg.Auth.AdminPassword == "" {
			log.Fatal("ADMIN_PASSWORD is required when JWT_SECRET is set")
		}
		hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		authCfg.AdminPassHash = hash
		log.Println("Authentication enabled")
	} else {
		log.Println("Authentication disabled (JWT_SECRET not set)")
	}

	h := api.NewHandler(p, audit, authCfg, logger)
	defer h.Gateway().Close()

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
