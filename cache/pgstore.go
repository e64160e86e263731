// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package cache

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mattermost/omnisearch/providers"
)

const pgTableName = "omnisearch_result_cache"

var pgJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Logger abstracts the logging interface used by the Postgres store.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
}

// PGStore satisfies the Store contract against Postgres, letting several
// omnisearch processes share one result cache. All SQL failures degrade to
// cache misses; dispatch correctness never depends on the database being up.
type PGStore struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	logger  Logger
	now     func() time.Time
}

// NewPGStore connects to the DSN and ensures the cache table exists.
func NewPGStore(dsn string, logger Logger) (*PGStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to cache database")
	}
	store := &PGStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger,
		now:     time.Now,
	}
	if err := store.ensureSchema(); err != nil {
		return nil, errors.Wrap(err, "failed to ensure cache schema")
	}
	return store, nil
}

func (s *PGStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + pgTableName + ` (
			cache_key  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (s *PGStore) Get(ctx context.Context, key string) (*providers.NormalizedResult, bool) {
	query, args, err := s.builder.
		Select("payload").
		From(pgTableName).
		Where(sq.Eq{"cache_key": key}).
		Where(sq.Gt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		s.logger.Warn("Failed to build cache select", "error", err)
		return nil, false
	}

	var payload string
	if err := s.db.GetContext(ctx, &payload, query, args...); err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("Cache lookup failed", "error", err)
		}
		return nil, false
	}

	var result providers.NormalizedResult
	if err := pgJSON.UnmarshalFromString(payload, &result); err != nil {
		s.logger.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		s.delete(ctx, key)
		return nil, false
	}
	return &result, true
}

func (s *PGStore) Put(ctx context.Context, key string, result *providers.NormalizedResult, ttl time.Duration) {
	if result == nil || ttl <= 0 {
		return
	}
	payload, err := pgJSON.MarshalToString(result)
	if err != nil {
		s.logger.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	expiresAt := s.now().Add(ttl)

	query, args, err := s.builder.
		Insert(pgTableName).
		Columns("cache_key", "payload", "expires_at").
		Values(key, payload, expiresAt).
		Suffix("ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		s.logger.Warn("Failed to build cache upsert", "error", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}

func (s *PGStore) Len() int {
	query, args, err := s.builder.
		Select("COUNT(*)").
		From(pgTableName).
		Where(sq.Gt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return 0
	}
	var count int
	if err := s.db.Get(&count, query, args...); err != nil {
		return 0
	}
	return count
}

// PurgeExpired removes expired rows; intended for a periodic housekeeping
// call, not the hot path.
func (s *PGStore) PurgeExpired(ctx context.Context) {
	query, args, err := s.builder.
		Delete(pgTableName).
		Where(sq.LtOrEq{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Warn("Cache purge failed", "error", err)
	}
}

func (s *PGStore) delete(ctx context.Context, key string) {
	query, args, err := s.builder.
		Delete(pgTableName).
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Warn("Cache delete failed", "key", key, "error", err)
	}
}

// Close releases the database handle.
func (s *PGStore) Close() error {
	return s.db.Close()
}
