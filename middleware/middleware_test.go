package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/skyquest/cache"
	"github.com/kasuganosora/skyquest/config"
	"github.com/kasuganosora/skyquest/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

const testSecret = "test-jwt-secret-32bytes-padded!!"

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- trace id ----

func newTraceRouter() *gin.Engine {
	r := gin.New()
	r.Use(TraceID())
	r.GET("/trace", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})
	return r
}

func TestTraceID_Generated(t *testing.T) {
	w := serve(newTraceRouter(), httptest.NewRequest(http.MethodGet, "/trace", nil))
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Body.String()
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Header().Get(TraceIDHeader))
}

func TestTraceID_Provided(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trace", nil)
	req.Header.Set(TraceIDHeader, "my-custom-trace")
	w := serve(newTraceRouter(), req)
	assert.Equal(t, "my-custom-trace", w.Body.String())
	assert.Equal(t, "my-custom-trace", w.Header().Get(TraceIDHeader))
}

func TestTraceID_UniquePerRequest(t *testing.T) {
	r := newTraceRouter()
	w1 := serve(r, httptest.NewRequest(http.MethodGet, "/trace", nil))
	w2 := serve(r, httptest.NewRequest(http.MethodGet, "/trace", nil))
	assert.NotEqual(t, w1.Body.String(), w2.Body.String())
}

func TestGetTraceID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetTraceID(c))
}

// ---- jwt ----

func TestToken_RoundTrip(t *testing.T) {
	tok, err := GenerateToken(Identity{AccountID: 99, Profile: "kid", Character: "jett"}, testSecret, time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(99), claims.AccountID)
	assert.Equal(t, "kid", claims.Profile)
	assert.Equal(t, "jett", claims.Character)
}

func TestParseToken_Rejects(t *testing.T) {
	tok, err := GenerateToken(Identity{AccountID: 1}, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(tok, "wrong-secret")
	assert.Error(t, err)

	expired, err := GenerateToken(Identity{AccountID: 1}, testSecret, -time.Second)
	require.NoError(t, err)
	_, err = ParseToken(expired, testSecret)
	assert.Error(t, err)

	_, err = ParseToken("not.a.jwt", testSecret)
	assert.Error(t, err)
	_, err = ParseToken("", testSecret)
	assert.Error(t, err)
}

// ---- auth ----

func newAuthRouter(t *testing.T) (*gin.Engine, cache.Cache) {
	c, _ := testutil.SetupTestCache(t)
	r := gin.New()
	r.Use(Auth(config.SecurityConfig{JWTSecret: testSecret}, c))
	r.GET("/me", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"id": GetAccountID(ctx), "character": GetCharacter(ctx)})
	})
	return r, c
}

func TestAuth_Bearer(t *testing.T) {
	r, _ := newAuthRouter(t)
	tok, _ := GenerateToken(Identity{AccountID: 7, Character: "donnie"}, testSecret, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"character":"donnie"}`, w.Body.String())
}

func TestAuth_QueryToken(t *testing.T) {
	r, _ := newAuthRouter(t)
	tok, _ := GenerateToken(Identity{AccountID: 7}, testSecret, time.Hour)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Failures(t *testing.T) {
	r, c := newAuthRouter(t)
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/me", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	tok, _ := GenerateToken(Identity{AccountID: 7}, testSecret, time.Hour)
	require.NoError(t, c.Set(context.Background(), RevokedKey(tok), "1", time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session expired")
}

// ---- rate limit ----

func newRateLimitRouter(t *testing.T, r rate.Limit, b int) *gin.Engine {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng := gin.New()
	eng.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Account"); id == "1" {
			c.Set(AccountIDKey, int64(1))
		}
		c.Next()
	})
	eng.Use(RateLimit(ctx, r, b))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func fromIP(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":1234"
	return req
}

func TestRateLimit_PerIP(t *testing.T) {
	r := newRateLimitRouter(t, rate.Every(time.Hour), 2)
	assert.Equal(t, http.StatusOK, serve(r, fromIP("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, fromIP("10.0.0.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, fromIP("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, fromIP("10.0.0.2")).Code)
}

func TestRateLimit_PerAccount(t *testing.T) {
	r := newRateLimitRouter(t, rate.Every(time.Hour), 1)
	req := fromIP("10.0.0.1")
	req.Header.Set("X-Account", "1")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = fromIP("10.0.0.9")
	req.Header.Set("X-Account", "1")
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req).Code)
	// the anonymous bucket of the first IP is untouched
	assert.Equal(t, http.StatusOK, serve(r, fromIP("10.0.0.1")).Code)
}

// ---- ip whitelist ----

func TestIPWhitelist(t *testing.T) {
	r := gin.New()
	r.Use(IPWhitelist([]string{"127.0.0.1", "10.1.0.0/16"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, fromIP("127.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, fromIP("10.1.2.3")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, fromIP("10.2.0.1")).Code)

	open := gin.New()
	open.Use(IPWhitelist(nil))
	open.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(open, fromIP("8.8.8.8")).Code)
}

// ---- recovery and logger ----

func TestRecoveryAndLogger(t *testing.T) {
	r := gin.New()
	r.Use(TraceID(), Logger(zaptest.NewLogger(t)), Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), w.Header().Get(TraceIDHeader))

	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)
}
