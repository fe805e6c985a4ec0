package testutil

import (
	"wsrestore/internal/encryption"
	"wsrestore/internal/snapshot"
)

// NewTestEncryptor creates a deterministic encryptor for sealed-export tests.
func NewTestEncryptor() snapshot.Encryptor {
	return encryption.NewTestEncryptor()
}
