package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"zanara/internal/config"
	"zanara/internal/domain"
	"zanara/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDFromContext returns the authenticated user id set by HTTPAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 bearer token for a user id. The API only
// validates tokens; issuing happens in the identity service, this helper
// exists for tooling and tests.
func GenerateToken(secret string, userID int64, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// HTTPAuth validates bearer tokens and enforces per-user rate limits. The
// local limiter is the cheap first line, the state repository window is the
// cross-instance budget.
type HTTPAuth struct {
	cfg      *config.Config
	state    domain.StateRepository
	limiters sync.Map // map[int64]*rate.Limiter
}

func NewHTTPAuth(cfg *config.Config, state domain.StateRepository) *HTTPAuth {
	return &HTTPAuth{cfg: cfg, state: state}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if !a.allow(r.Context(), userID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *HTTPAuth) authenticate(r *http.Request) (int64, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return 0, fmt.Errorf("missing authorization header")
	}
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return 0, fmt.Errorf("authorization header is not a bearer token")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.cfg.Auth.JWTSecret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid token subject")
	}
	return userID, nil
}

func (a *HTTPAuth) allow(ctx context.Context, userID int64) bool {
	if !a.getLimiter(userID).Allow() {
		return false
	}

	if a.state != nil {
		window := time.Duration(a.cfg.RateLimit.Window) * time.Second
		allowed, err := a.state.CheckRateLimit(ctx, userID, a.cfg.RateLimit.Requests, window)
		if err == nil && !allowed {
			return false
		}
	}
	return true
}

func (a *HTTPAuth) getLimiter(userID int64) *rate.Limiter {
	if v, ok := a.limiters.Load(userID); ok {
		return v.(*rate.Limiter)
	}

	requests := a.cfg.RateLimit.Requests
	if requests <= 0 {
		requests = models.RateLimitRequests
	}
	window := a.cfg.RateLimit.Window
	if window <= 0 {
		window = models.RateLimitWindow
	}

	lim := rate.NewLimiter(rate.Limit(float64(requests)/float64(window)), requests)
	actual, loaded := a.limiters.LoadOrStore(userID, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
