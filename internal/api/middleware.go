package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const claimsKey = "claims"

// jwtMiddleware проверяет bearer-токен. Для изменяющих маршрутов
// дополнительно требуется право записи.
func (rs *RestServer) jwtMiddleware(requireWrite bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rs.signer == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortText(c, http.StatusUnauthorized, "Отсутствует токен авторизации")
			return
		}

		// Формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortText(c, http.StatusUnauthorized, "Неверный формат токена")
			return
		}

		claims, err := rs.signer.ValidateJWT(parts[1])
		if err != nil {
			abortText(c, http.StatusUnauthorized, "Недействительный токен")
			return
		}
		if requireWrite && !claims.CanWrite {
			abortText(c, http.StatusForbidden, "Недостаточно прав для записи")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ipLimiter хранит по одному token bucket на адрес клиента
type ipLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = int(rps) + 1
	}
	return &ipLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

// rateLimitMiddleware ограничивает частоту запросов с одного адреса
func (rs *RestServer) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rs.limiter == nil {
			c.Next()
			return
		}
		if !rs.limiter.get(c.ClientIP()).Allow() {
			abortText(c, http.StatusTooManyRequests, "Слишком много запросов")
			return
		}
		c.Next()
	}
}

func abortText(c *gin.Context, status int, message string) {
	c.String(status, message)
	c.Abort()
}
