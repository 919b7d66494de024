// middleware/rate_limit.go
package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"donation-checkout-api/models"
	"donation-checkout-api/utils"
)

const CheckoutPath = "/api/donations/recurring-checkout"

type RateLimiter struct {
	client  *redis.Client
	configs map[string]RateLimitConfig
}

// RateLimitConfig representa a configuração de rate limiting
type RateLimitConfig struct {
	Requests int           // Número de requests permitidos
	Window   time.Duration // Janela de tempo
	Message  string        // Mensagem personalizada
}

var defaultConfigs = map[string]RateLimitConfig{
	CheckoutPath: {
		Requests: 5,
		Window:   time.Minute * 10, // 5 tentativas de doação por 10 minutos
		Message:  "Too many donation attempts. Please wait a few minutes and try again.",
	},
	"/api/internal/operator-token": {
		Requests: 30,
		Window:   time.Minute,
		Message:  "Internal API rate limit exceeded.",
	},
	"default": {
		Requests: 60,
		Window:   time.Minute, // 60 requests por minuto como padrão
		Message:  "Rate limit exceeded. Please slow down your requests.",
	},
}

// Script Lua para operação atômica
var rateLimitScript = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])
	local member = ARGV[3]
	local now = tonumber(ARGV[4])
	local ttl = tonumber(ARGV[5])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start - 1)

	local current_count = redis.call('ZCARD', key)

	if current_count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('EXPIRE', key, ttl)
		return {1, limit - current_count - 1}
	end
	return {0, 0}
`)

// NewRateLimiter shares the queue's Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	configs := make(map[string]RateLimitConfig, len(defaultConfigs))
	for path, cfg := range defaultConfigs {
		configs[path] = cfg
	}
	return &RateLimiter{client: client, configs: configs}
}

// SetLimit overrides the limit for one path.
func (rl *RateLimiter) SetLimit(path string, cfg RateLimitConfig) {
	rl.configs[path] = cfg
}

// RateLimitMiddleware retorna middleware de rate limiting
func (rl *RateLimiter) RateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			config := rl.getConfigForEndpoint(r.URL.Path)
			key := rl.getRateLimitKey(r)

			allowed, remaining, resetTime, err := rl.checkRateLimit(r.Context(), key, config)
			if err != nil {
				// Em caso de erro, permitir o request mas logar
				log.Printf("[RequestID: %s] Rate limit check error: %v", GetRequestID(r.Context()), err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				log.Printf("[RequestID: %s] Rate limit exceeded for key: %s, endpoint: %s", GetRequestID(r.Context()), key, r.URL.Path)
				writeRateLimited(w, config, resetTime)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, config RateLimitConfig, resetTime time.Time) {
	retryAfter := int64(time.Until(resetTime).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(models.APIResponse{
		Status:  "error",
		Message: config.Message,
	})
}

func (rl *RateLimiter) getConfigForEndpoint(path string) RateLimitConfig {
	if config, exists := rl.configs[path]; exists {
		return config
	}

	if strings.HasPrefix(path, "/api/internal/") {
		return RateLimitConfig{
			Requests: 100,
			Window:   time.Minute,
			Message:  "Internal API rate limit exceeded.",
		}
	}

	return rl.configs["default"]
}

// getRateLimitKey gera chave única para rate limiting
func (rl *RateLimiter) getRateLimitKey(r *http.Request) string {
	endpoint := r.URL.Path

	if strings.HasPrefix(endpoint, "/api/internal/") {
		if secret := r.Header.Get("X-Internal-Secret"); secret != "" {
			sum := sha256.Sum256([]byte(secret))
			return fmt.Sprintf("rate_limit:internal:%s", hex.EncodeToString(sum[:])[:16])
		}
	}

	return fmt.Sprintf("rate_limit:%s:%s", clientIP(r), endpoint)
}

func (rl *RateLimiter) checkRateLimit(ctx context.Context, key string, config RateLimitConfig) (allowed bool, remaining int, resetTime time.Time, err error) {
	now := time.Now()
	windowStart := now.Truncate(config.Window)
	windowEnd := windowStart.Add(config.Window)

	// member must be unique or concurrent requests in the same nanosecond collapse
	member := fmt.Sprintf("%d-%s", now.UnixNano(), utils.GenerateRandomString(8))

	result, err := rateLimitScript.Run(ctx, rl.client, []string{key},
		windowStart.UnixMilli(), config.Requests, member, now.UnixMilli(), int(config.Window.Seconds())+1).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) != 2 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	allowedInt, ok1 := resultSlice[0].(int64)
	remainingInt, ok2 := resultSlice[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, time.Time{}, fmt.Errorf("failed to parse redis result")
	}

	return allowedInt == 1, int(remainingInt), windowEnd, nil
}

// SecurityHeadersMiddleware adiciona headers de segurança
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extrai o IP real do cliente
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		return strings.TrimSpace(ips[0])
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" { // Cloudflare
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
