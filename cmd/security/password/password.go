package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Version = argon2.Version

// Hash derives a salted Argon2id key from plain and returns the PHC string.
// The only failure mode is the system random source.
func (c Config) Hash(plain string) (string, error) {
	p := sanitizeParams(c.Params)

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		p.MemoryKiB,
		p.Iterations,
		p.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches encoded.
// Malformed hashes and hashes with cost far above the configured cost yield ErrInvalidHash.
func (c Config) Verify(encoded, plain string) (bool, error) {
	params, salt, want, err := decode(encoded)
	if err != nil {
		return false, err
	}
	if !withinBounds(params, ceiling(c.Params)) {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey(
		[]byte(plain),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(want)), // #nosec G115 -- bounded by withinBounds.
	)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Hash hashes plain with the environment configuration.
func Hash(plain string) (string, error) {
	return current().Hash(plain)
}

// Verify checks plain against encoded with the environment configuration.
func Verify(encoded, plain string) (bool, error) {
	return current().Verify(encoded, plain)
}

func current() Config {
	cfg, err := FromEnv()
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

func sanitizeParams(p Argon2idParams) Argon2idParams {
	if p.Parallelism == 0 {
		p.Parallelism = 1
	}
	if p.Iterations == 0 {
		p.Iterations = 1
	}
	if p.MemoryKiB < 8*1024 {
		p.MemoryKiB = 8 * 1024
	}
	if p.SaltLength < 8 {
		p.SaltLength = 16
	}
	if p.KeyLength < 16 {
		p.KeyLength = 32
	}
	return p
}

// ceiling never drops below the defaults, so lowering the configured cost
// does not lock out users whose hashes were made with the defaults.
func ceiling(p Argon2idParams) Argon2idParams {
	p = sanitizeParams(p)
	d := DefaultConfig().Params
	p.MemoryKiB = max(p.MemoryKiB, d.MemoryKiB)
	p.Iterations = max(p.Iterations, d.Iterations)
	p.Parallelism = max(p.Parallelism, 4)
	return p
}

// withinBounds accepts hashes made with older, cheaper settings but refuses
// attacker-sized costs.
func withinBounds(got, limits Argon2idParams) bool {
	switch {
	case got.MemoryKiB > limits.MemoryKiB*2:
		return false
	case got.Iterations > limits.Iterations*2:
		return false
	case got.Parallelism > limits.Parallelism*2:
		return false
	case got.SaltLength < 8 || got.SaltLength > 64:
		return false
	case got.KeyLength < 16 || got.KeyLength > 128:
		return false
	}
	return true
}

func decode(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)), // #nosec G115
		KeyLength:   uint32(len(key)),  // #nosec G115
	}, salt, key, nil
}
