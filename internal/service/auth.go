package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"

	"github.com/cloo-solutions/finsight/internal/domain"
)

const apiKeyPrefix = "fsk_"

// AuthService validates bearer tokens against a fixed set of configured API
// keys. Only token hashes are kept in memory.
type AuthService struct {
	clients map[string]string
}

func NewAuthService(tokens []string) *AuthService {
	clients := make(map[string]string, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if !IsValidAPIToken(token) {
			log.Printf("auth: configured api key %s does not use the fsk_<64 hex> format", ClientID(token))
		}
		clients[hashToken(token)] = ClientID(token)
	}
	return &AuthService{clients: clients}
}

// ValidateAPIKey returns the client ID of token.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidAPIKey
	}
	clientID, ok := s.clients[hashToken(token)]
	if !ok {
		return "", domain.ErrInvalidAPIKey
	}
	return clientID, nil
}

// ClientID derives a loggable identifier from a token without revealing it.
func ClientID(token string) string {
	return "key-" + hashToken(token)[:8]
}

// GenerateAPIToken returns a new random API key.
func GenerateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
