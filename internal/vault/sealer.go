package vault

import (
	"context"
	"encoding/json"
)

// envelope is how sealed answers look in the answers JSONB column
type envelope struct {
	Sealed     string `json:"$sealed"`
	Ciphertext string `json:"ciphertext"`
}

const envelopeVersion = "vault-transit-v1"

type transitCipher interface {
	Encrypt(ctx context.Context, plaintext []byte) (string, error)
	Decrypt(ctx context.Context, ciphertext string) ([]byte, error)
}

// AnswerSealer encrypts student answers through Vault before they are stored
type AnswerSealer struct {
	cipher transitCipher
}

// NewAnswerSealer creates a sealer backed by the Vault client
func NewAnswerSealer(c *Client) *AnswerSealer {
	return &AnswerSealer{cipher: c}
}

// Seal encrypts plaintext and wraps the ciphertext in a JSON envelope
func (s *AnswerSealer) Seal(ctx context.Context, plaintext []byte) ([]byte, error) {
	ciphertext, err := s.cipher.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Sealed: envelopeVersion, Ciphertext: ciphertext})
}

// Open decrypts an envelope. Answers stored before sealing was enabled are
// returned unchanged.
func (s *AnswerSealer) Open(ctx context.Context, stored []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(stored, &env); err != nil || env.Sealed != envelopeVersion {
		return stored, nil
	}
	return s.cipher.Decrypt(ctx, env.Ciphertext)
}
