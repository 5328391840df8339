package bootstrap

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/seqdepot/seqdepot/internal/data/cryptoutil"
)

// CreateEncryptor builds the encryptor sealing webhook sink tokens at rest.
// A 64-char hex key is used directly as the 32-byte AES key; any other
// non-empty value is hashed down to one. An empty or unusable key degrades to
// the noop encryptor with a warning so development setups still boot.
//
//nolint:ireturn // callers depend on the Encryptor interface
func CreateEncryptor(key string, logger *slog.Logger) cryptoutil.Encryptor {
	if key == "" {
		if logger != nil {
			logger.Warn("encryption key is empty, using noop encryptor")
		}
		return cryptoutil.NoopEncryptor{}
	}

	keyBytes, err := hex.DecodeString(key)
	if err != nil || len(keyBytes) != 32 {
		sum := sha256.Sum256([]byte(key))
		keyBytes = sum[:]
	}

	enc, err := cryptoutil.NewAESGCMEncryptor(keyBytes)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to create encryptor, using noop encryptor", "error", err)
		}
		return cryptoutil.NoopEncryptor{}
	}
	return enc
}
