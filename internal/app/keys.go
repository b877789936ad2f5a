package app

import (
	"fmt"

	"auth-service/internal/config"
	"auth-service/internal/security"
)

// SigningKey builds the access-token key: asymmetric when JWT_PRIVATE_KEY is
// set, HS256 from JWT_SECRET otherwise.
func SigningKey(cfg *config.Config) (security.SigningKey, error) {
	if cfg.JWTPrivateKey != "" {
		key, err := security.NewAsymmetricKey(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return security.SigningKey{}, fmt.Errorf("JWT_PRIVATE_KEY: %w", err)
		}
		return key, nil
	}
	key, err := security.NewHMACKeyFromBase64(cfg.JWTSecret)
	if err != nil {
		return security.SigningKey{}, fmt.Errorf("JWT_SECRET: %w", err)
	}
	return key, nil
}
