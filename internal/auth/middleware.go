package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// 免认证路由白名单（前缀匹配）
var publicPrefixes = []string{
	"/api/v1/auth/login",
	"/health",
	"/metrics",
	"/ws/",
}

func isPublicRoute(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware 创建 JWT 认证中间件
// 如果 cfg.Enabled() == false，直接放行所有请求（无认证模式）
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			if _, err := ParseAccessToken(cfg, parts[1]); err != nil {
				log.Printf("[auth] token rejected: %v", err)
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoginRequest 登录请求体
type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// LoginHandler 创建登录处理函数
//
// POST /api/v1/auth/login → {"token": "..."}
func LoginHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Enabled() {
			http.Error(w, `{"error":"authentication disabled"}`, http.StatusNotFound)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if req.User != cfg.AdminUser || !CheckPassword(req.Password, cfg.AdminPassHash) {
			log.Printf("[auth] login rejected for user %q", req.User)
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}

		token, err := GenerateAccessToken(cfg, req.User)
		if err != nil {
			log.Printf("[auth] token generation failed: %v", err)
			http.Error(w, `{"error":"token generation failed"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}
