// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidToken = errors.New("invalid token format")

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// MintSessionToken creates a verifiable session token for a user.
// Format: base64url(userID) + "." + base64url(HMAC(userID, secret)).
// Deterministic per user, so re-login reuses the same token.
func MintSessionToken(userID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	sig := strings.TrimRight(base64.URLEncoding.EncodeToString(mac.Sum(nil)), "=")
	id := strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(userID)), "=")
	return id + "." + sig
}

// VerifySessionToken validates a token and returns the user ID it was
// minted for.
func VerifySessionToken(token, secret string) (string, error) {
	idPart, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(idPart)
	if err != nil {
		return "", ErrInvalidToken
	}
	userID := string(raw)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	expected := strings.TrimRight(base64.URLEncoding.EncodeToString(mac.Sum(nil)), "=")
	if !hmac.Equal([]byte(sigPart), []byte(expected)) {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// HashIP creates a salted hash of an IP for rate limiting, so raw
// addresses are never stored.
func HashIP(ip, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil)[:16])
}
