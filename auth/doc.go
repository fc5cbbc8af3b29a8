// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token generation and validation for the civic-sync
service.

# Session Tokens

Sessions are HMAC-signed bearer tokens carrying the user ID:

	token := auth.MintSessionToken(userID, cfg.SessionSecret)
	userID, err := auth.VerifySessionToken(token, cfg.SessionSecret)

Tokens are deterministic per user and verifiable without a session table.

# IDs and IP Hashing

GenerateID produces random hex identifiers for rows. HashIP produces the
salted hash the rate limiter keys its buckets by, so raw client addresses
never reach storage or logs.
*/
package auth
