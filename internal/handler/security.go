package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/appmate-io/wishlist-engine/internal/domain/auth"
)

// apiKeyHeader carries the caller's API key.
const apiKeyHeader = "api_key"

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
	lg      *zap.Logger
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte, lg *zap.Logger) *SecurityHandler {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
		lg:      lg,
	}
}

// Middleware rejects requests that do not carry a valid API key.
func (s *SecurityHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" || !s.validate(r, key) {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validate computes the HMAC-SHA256 of the provided API key, looks it up in
// the repository, and performs a constant-time comparison to prevent timing
// attacks.
func (s *SecurityHandler) validate(r *http.Request, key string) bool {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		return false
	}

	// Constant-time comparison guards against timing side-channels even though
	// the lookup already succeeded. The stored hash could differ from what we
	// computed if the repository returns a stale or wrong row.
	storedBytes, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		s.lg.Warn("Stored API key hash is not valid hex", zap.String("id", info.ID))
		return false
	}
	return subtle.ConstantTimeCompare(hash, storedBytes) == 1
}

func unauthorized(w http.ResponseWriter) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusUnauthorized) })
		e.Field("message", func(e *jx.Encoder) { e.Str("unauthorized") })
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(e.Bytes())
}
