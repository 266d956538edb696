package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questauth/adapters/store"
	"github.com/layer-3/questauth/adapters/tokenizer"
	"github.com/layer-3/questauth/adapters/verifier"
	"github.com/layer-3/questauth/core"
	"github.com/layer-3/questauth/internal/testwallet"
	"github.com/layer-3/questauth/ports"
	"github.com/layer-3/questauth/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router    *gin.Engine
	tokenizer ports.Tokenizer
	store     *store.MemoryStore
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	return newServer(t, RouterConfig{
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: rateLimit,
	}, tokenizer.NewJWTTokenizer([]byte("http-test-secret")))
}

func newServer(t *testing.T, cfg RouterConfig, tk ports.Tokenizer) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemoryStore()
	svc := service.NewAuthService(tk, verifier.NewRegistry(), mem, mem, nil, service.DefaultConfig(), zerolog.Nop())

	router, err := SetupRouter(svc, cfg, zerolog.Nop())
	require.NoError(t, err)

	return &testServer{router: router, tokenizer: tk, store: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:5555"
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// exchange requests a nonce for wallet, signs it and submits it with flow
func (s *testServer) exchange(t *testing.T, wallet testwallet.Wallet, flow string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	w := s.do(t, http.MethodPost, "/auth/web3/generate-nonce?address="+wallet.Address(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tempToken := decode(t, w)["temp_token"].(string)

	challenge, err := s.tokenizer.TokenToChallenge(tempToken)
	require.NoError(t, err)

	return s.do(t, http.MethodPost, "/auth/web3/verify-signature?type="+flow, map[string]string{
		"temp_token": tempToken,
		"signature":  wallet.Sign(t, challenge.Nonce),
	}, headers)
}

func TestSignInAndSessionEndpoints(t *testing.T) {
	s := newTestServer(t, 100)
	wallet := testwallet.NewEthereum(t)

	w := s.exchange(t, wallet, "sign_in", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	accessToken := body["access_token"].(string)
	require.NotEmpty(t, accessToken)
	assert.Equal(t, "Wallet "+wallet.Address()+" has been registered successfully", body["message"])
	assert.Equal(t, 1, s.store.AccountCount())

	account, err := s.store.FindAccountByAddress(t.Context(), wallet.Address())
	require.NoError(t, err)
	assert.Contains(t, s.store.AccountIPs(account.ID), "203.0.113.9")

	t.Run("is valid", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/auth/web3/is-valid", nil, bearer(accessToken))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["is_valid"])
	})

	t.Run("is valid with garbage token", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/auth/web3/is-valid", nil, bearer("garbage"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decode(t, w)["is_valid"])
	})

	t.Run("is valid without header", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/auth/web3/is-valid", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("link a second wallet", func(t *testing.T) {
		second := testwallet.NewSolana(t)
		w := s.exchange(t, second, "link", bearer(accessToken))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, accessToken, body["access_token"])
		assert.Equal(t, "Wallet "+second.Address()+" has been linked successfully", body["message"])
		assert.Len(t, s.store.Wallets(account.ID), 2)
	})

	t.Run("link without session", func(t *testing.T) {
		w := s.exchange(t, testwallet.NewEthereum(t), "link", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("link with invalid session", func(t *testing.T) {
		wallet := testwallet.NewEthereum(t)
		w := s.exchange(t, wallet, "link", bearer("garbage"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

		_, err := s.store.FindAccountByAddress(t.Context(), wallet.Address())
		assert.Error(t, err)
	})

	t.Run("deactivate without session", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, "/auth/web3/deactivate", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = s.do(t, http.MethodDelete, "/auth/web3/deactivate", nil, bearer("garbage"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deactivate", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, "/auth/web3/deactivate", nil, bearer(accessToken))
		require.Equal(t, http.StatusNoContent, w.Code)

		w = s.do(t, http.MethodGet, "/auth/web3/is-valid", nil, bearer(accessToken))
		assert.Equal(t, false, decode(t, w)["is_valid"])

		w = s.do(t, http.MethodDelete, "/auth/web3/deactivate", nil, bearer(accessToken))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestVerifySignatureRejections(t *testing.T) {
	s := newTestServer(t, 100)

	t.Run("unsupported type", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/auth/web3/verify-signature?type=merge", map[string]string{
			"temp_token": "x",
			"signature":  "y",
		}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w)["error"], "available types: sign_in, link")
	})

	t.Run("missing body fields", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/auth/web3/verify-signature?type=sign_in", map[string]string{}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad signature collapses to generic failure", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/auth/web3/generate-nonce", map[string]string{
			"address": testwallet.NewEthereum(t).Address(),
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodPost, "/auth/web3/verify-signature?type=sign_in", map[string]string{
			"temp_token": decode(t, w)["temp_token"].(string),
			"signature":  "0xdeadbeef",
		}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, map[string]any{"error": "verification failed"}, decode(t, w))
		assert.Zero(t, s.store.AccountCount())
	})

	t.Run("nonce without address", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/auth/web3/generate-nonce", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	path := "/auth/web3/generate-nonce?address=0xAbC0000000000000000000000000000000000042"

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, path, nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, path, nil, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, path, nil, nil).Code)

	t.Run("forwarded header from an untrusted peer is ignored", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			w := s.do(t, http.MethodPost, path, nil, map[string]string{
				"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i+1),
			})
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	})
}

func TestRateLimit_TrustedProxy(t *testing.T) {
	s := newServer(t, RouterConfig{
		RateLimitPerMinute: 1,
		TrustedProxies:     []string{"203.0.113.0/24"},
	}, tokenizer.NewJWTTokenizer([]byte("http-test-secret")))
	path := "/auth/web3/generate-nonce?address=0xAbC0000000000000000000000000000000000042"

	first := map[string]string{"X-Forwarded-For": "198.51.100.4"}
	second := map[string]string{"X-Forwarded-For": "198.51.100.5"}

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, path, nil, first).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, path, nil, first).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, path, nil, second).Code)
}

func TestSetupRouter_InvalidTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := store.NewMemoryStore()
	svc := service.NewAuthService(tokenizer.NewJWTTokenizer([]byte("x")), verifier.NewRegistry(), mem, mem, nil, service.DefaultConfig(), zerolog.Nop())

	_, err := SetupRouter(svc, RouterConfig{RateLimitPerMinute: 1, TrustedProxies: []string{"not-an-ip"}}, zerolog.Nop())
	require.Error(t, err)
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(5)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	limiter.Allow("b")
	assert.Equal(t, 2, limiter.Len())

	now = now.Add(time.Minute)
	limiter.Allow("b")
	assert.Equal(t, 2, limiter.Len())

	now = now.Add(visitorIdleTimeout)
	limiter.Allow("c")
	assert.Equal(t, 2, limiter.Len())
}

func TestRateLimiter_Refills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("a"))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 10)

	w := s.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "questauth_http_request_duration_seconds")
}

type failingTokenizer struct {
	ports.Tokenizer
}

func (failingTokenizer) ChallengeToToken(*core.Challenge, time.Duration) (string, error) {
	return "", errors.New("signing key unavailable")
}

func TestGenerateNonce_InternalFailure(t *testing.T) {
	s := newServer(t, RouterConfig{RateLimitPerMinute: 10}, failingTokenizer{})

	w := s.do(t, http.MethodPost, "/auth/web3/generate-nonce?address=0xAbC0000000000000000000000000000000000042", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSessionMiddleware(t *testing.T) {
	s := newTestServer(t, 100)
	result := s.exchange(t, testwallet.NewEthereum(t), "sign_in", nil)
	require.Equal(t, http.StatusOK, result.Code)
	token := decode(t, result)["access_token"].(string)

	mem := s.store
	svc := service.NewAuthService(s.tokenizer, verifier.NewRegistry(), mem, mem, nil, service.DefaultConfig(), zerolog.Nop())

	router := gin.New()
	router.GET("/me", SessionMiddleware(svc, zerolog.Nop()), func(c *gin.Context) {
		account, sessionToken, ok := sessionFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"account_id": account.ID, "token": sessionToken})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, token, body["token"])
	assert.NotEmpty(t, body["account_id"])
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{header: "Bearer ", ok: false},
		{header: "Basic abc", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", tt.header)

		token, ok := bearerToken(c)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
