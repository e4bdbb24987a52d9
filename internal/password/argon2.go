// Package password implements derive and verify password verifiers
// using Argon2id, detect stale parameters, and enforce the password
// policy at hash time. Adapted from the prior service's bcrypt hasher
// (internal/auth/password.go) onto golang.org/x/crypto/argon2, the
// memory-hard construction a production deployment requires.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/taskforge/authcore/internal/corerr"
)

// Hasher is the contract this package exposes to the credential service.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, verifier string) (ok bool, needsRehash bool, err error)
}

// Params are the Argon2id cost parameters, read from configuration
//. They are process-wide immutable after
// startup.
type Params struct {
	MemoryKiB   uint32
	TimeCost    uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultParams matches the OWASP-recommended Argon2id baseline.
func DefaultParams() Params {
	return Params{
		MemoryKiB:   64 * 1024,
		TimeCost:    3,
		Parallelism: 2,
		KeyLength:   32,
		SaltLength:  16,
	}
}

// Argon2Hasher implements Hasher with a self-describing verifier string in
// the standard PHC-like format:
// $argon2id$v=19$m=<kib>,t=<time>,p=<parallelism>$<salt-b64>$<hash-b64>
type Argon2Hasher struct {
	params Params
	policy Policy
}

func NewArgon2Hasher(params Params, policy Policy) *Argon2Hasher {
	return &Argon2Hasher{params: params, policy: policy}
}

const argon2Version = 19 // argon2.Version, pinned here so the format string is self-contained

// Hash enforces the password policy and derives a verifier with the
// hasher's current parameters. It never truncates a non-conforming
// password — it rejects it.
func (h *Argon2Hasher) Hash(candidate string) (string, error) {
	if err := h.policy.Validate(candidate); err != nil {
		return "", err
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", corerr.Internal(fmt.Errorf("generate salt: %w", err))
	}

	sum := argon2.IDKey([]byte(candidate), salt, h.params.TimeCost, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	return encode(h.params, salt, sum), nil
}

// Verify reports whether password matches verifier, and whether verifier
// was produced with parameters that differ from the hasher's current ones —
// the caller should re-hash on the next successful login when true.
// Comparison is constant-time with respect to the derived hash.
func (h *Argon2Hasher) Verify(candidate, verifier string) (bool, bool, error) {
	params, salt, want, err := decode(verifier)
	if err != nil {
		return false, false, nil // malformed verifier: treat as mismatch, not a fatal error
	}

	got := argon2.IDKey([]byte(candidate), salt, params.TimeCost, params.MemoryKiB, params.Parallelism, uint32(len(want)))

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return false, false, nil
	}

	needsRehash := params != h.params
	return true, needsRehash, nil
}

func encode(p Params, salt, hash []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, p.MemoryKiB, p.TimeCost, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(hash))
}

func decode(verifier string) (Params, []byte, []byte, error) {
	parts := strings.Split(verifier, "$")
	// parts[0] is "" (leading $); [1]=argon2id [2]=v=.. [3]=m=..,t=..,p=.. [4]=salt [5]=hash
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("malformed verifier")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed version segment: %w", err)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.TimeCost, &p.Parallelism); err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed params segment: %w", err)
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed salt: %w", err)
	}
	hash, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed hash: %w", err)
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(hash))

	return p, salt, hash, nil
}
