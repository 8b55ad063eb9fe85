package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// API key layout: "<index>_<token>". Odoo looks keys up by their first
// IndexSize characters, so the index doubles as the lookup prefix.
const (
	IndexSize       = 8
	TokenSize       = 20
	DefaultRounds   = 25000
	apiKeySaltSize  = 16
	apiKeyHashSize  = 64
	apiKeyHashIdent = "pbkdf2-sha512"
	apiKeyAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// ErrMalformedAPIKey is returned for keys that do not follow the key layout
var ErrMalformedAPIKey = errors.New("malformed api key")

// ErrMalformedHash is returned for stored hashes in an unknown format
var ErrMalformedHash = errors.New("malformed api key hash")

// adapted base64: standard alphabet with '.' instead of '+', no padding
var ab64 = base64.NewEncoding(strings.ReplaceAll("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/", "+", ".")).WithPadding(base64.NoPadding)

// GenerateAPIKey returns a new random key and its index
func GenerateAPIKey() (key, index string, err error) {
	index, err = randomString(IndexSize)
	if err != nil {
		return "", "", err
	}
	token, err := randomString(TokenSize)
	if err != nil {
		return "", "", err
	}
	return index + "_" + token, index, nil
}

// APIKeyIndex extracts the lookup index of a key
func APIKeyIndex(key string) (string, error) {
	if len(key) != IndexSize+1+TokenSize || key[IndexSize] != '_' {
		return "", ErrMalformedAPIKey
	}
	return key[:IndexSize], nil
}

// HashAPIKey hashes key in the modular crypt format Odoo verifies:
// $pbkdf2-sha512$<rounds>$<salt>$<checksum>
func HashAPIKey(key string, rounds int) (string, error) {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	salt := make([]byte, apiKeySaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hashWithSalt(key, salt, rounds), nil
}

func hashWithSalt(key string, salt []byte, rounds int) string {
	sum := pbkdf2.Key([]byte(key), salt, rounds, apiKeyHashSize, sha512.New)
	return fmt.Sprintf("$%s$%d$%s$%s", apiKeyHashIdent, rounds, ab64.EncodeToString(salt), ab64.EncodeToString(sum))
}

// VerifyAPIKey checks key against a stored hash in constant time
func VerifyAPIKey(key, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	// "", ident, rounds, salt, checksum
	if len(parts) != 5 || parts[0] != "" || parts[1] != apiKeyHashIdent {
		return false, ErrMalformedHash
	}
	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 {
		return false, ErrMalformedHash
	}
	salt, err := ab64.DecodeString(parts[3])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := ab64.DecodeString(parts[4])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}
	got := pbkdf2.Key([]byte(key), salt, rounds, len(want), sha512.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func randomString(n int) (string, error) {
	limit := big.NewInt(int64(len(apiKeyAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random key: %w", err)
		}
		b[i] = apiKeyAlphabet[idx.Int64()]
	}
	return string(b), nil
}
