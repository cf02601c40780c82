// Package shared holds small singletons that would otherwise create
// import cycles between the API layer and its middleware.
package shared

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/qoffice/dispatcher/internal/auth"
)

var (
	globalJWTManager *auth.JWTManager
	jwtOnce          sync.Once
)

// InitJWTManager builds the process-wide JWT manager from the resolved
// config secret, replacing it with an ephemeral random one when it is
// shorter than 32 bytes (including when it is unset).
// Must be called once during boot, before GetJWTManager.
func InitJWTManager(secret string, tokenDuration time.Duration) *auth.JWTManager {
	jwtOnce.Do(func() {
		if len(secret) < 32 {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err == nil {
				secret = hex.EncodeToString(b)
			}
		}
		if tokenDuration <= 0 {
			tokenDuration = 15 * time.Minute
		}
		globalJWTManager = auth.NewJWTManager(secret, tokenDuration)
	})
	return globalJWTManager
}

// GetJWTManager returns the singleton configured by InitJWTManager.
func GetJWTManager() *auth.JWTManager {
	return globalJWTManager
}