// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation for the civic-sync service.

# Schema

Five tables: app_user, agenda, suggestion, opinion, vote. Votes are one
row per (user, entity); a same-type revote deletes the row, which is
what makes vote replay idempotent. Suggestions and opinions carry a
UNIQUE dedup_key so an offline replay can never insert twice.

The DDL avoids database-specific defaults (no NOW()) and runs unchanged
on sqlite and postgres; CreateSchema is idempotent.
*/
package db
