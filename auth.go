package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/argon2"
)

// ─── Password hashes ─────────────────────────────────────────────────────────

const (
	argonMemory     = 64 * 1024
	argonIterations = 3
	argonThreads    = 1
	argonSaltLength = 16
	argonKeyLength  = 32
)

type passwordHash struct {
	m    uint32
	t    uint32
	p    uint8
	salt []byte
	sum  []byte
}

// hashPassword returns an argon2id PHC string for password.
func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonThreads, argonKeyLength)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonIterations, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

func parsePasswordHash(phc string) (*passwordHash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id hash format")
	}
	if parts[2] != "v=19" {
		return nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}
	h := &passwordHash{}
	for _, param := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(param, "=")
		if !ok {
			return nil, errors.New("invalid argon2id params")
		}
		bits := 32
		if k == "p" {
			bits = 8
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return nil, fmt.Errorf("invalid argon2id param %q", k)
		}
		switch k {
		case "m":
			h.m = uint32(n)
		case "t":
			h.t = uint32(n)
		case "p":
			h.p = uint8(n)
		default:
			return nil, errors.New("invalid argon2id params")
		}
	}
	if h.m == 0 || h.t == 0 || h.p == 0 {
		return nil, errors.New("invalid argon2id params")
	}
	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("invalid argon2id salt")
	}
	if h.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.sum) == 0 {
		return nil, errors.New("invalid argon2id hash")
	}
	return h, nil
}

func (h *passwordHash) verify(password string) bool {
	sum := argon2.IDKey([]byte(password), h.salt, h.t, h.m, h.p, uint32(len(h.sum)))
	return subtle.ConstantTimeCompare(sum, h.sum) == 1
}

// passwordCheck verifies login attempts against either a hash or a plain
// password. A zero passwordCheck has no password and accepts nobody.
type passwordCheck struct {
	hash  *passwordHash
	plain string
}

func newPasswordCheck(plain, phc string) (passwordCheck, error) {
	if phc == "" {
		return passwordCheck{plain: plain}, nil
	}
	h, err := parsePasswordHash(phc)
	if err != nil {
		return passwordCheck{}, err
	}
	return passwordCheck{hash: h}, nil
}

func (p passwordCheck) enabled() bool { return p.hash != nil || p.plain != "" }

func (p passwordCheck) verify(password string) bool {
	switch {
	case p.hash != nil:
		return p.hash.verify(password)
	case p.plain != "":
		return subtle.ConstantTimeCompare([]byte(password), []byte(p.plain)) == 1
	}
	return false
}

// ─── Tokens ──────────────────────────────────────────────────────────────────

const tokenTTL = 30 * 24 * time.Hour

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// newTokenIssuer signs with secret, or with a random key when secret is
// empty, in which case tokens do not survive a restart.
func newTokenIssuer(secret string) (*tokenIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &tokenIssuer{secret: key, ttl: tokenTTL, now: time.Now}, nil
}

func (ti *tokenIssuer) issue() (string, error) {
	now := ti.now()
	claims := jwt.StandardClaims{
		Subject:   "weave",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ti.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

func (ti *tokenIssuer) valid(token string) bool {
	if token == "" {
		return false
	}
	var claims jwt.StandardClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	return claims.VerifyExpiresAt(ti.now().Unix(), true)
}
