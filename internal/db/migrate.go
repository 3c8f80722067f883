package db

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// Migrate brings the schema up to date: gorm-managed tables first, then the
// raw-SQL pieces gorm cannot express (pgvector column + ANN index, generated
// tsvector column, unlogged cache relation with its SQL functions, and the
// two aggregation materialized views).
func Migrate(gdb *gorm.DB, embeddingDims int) error {
	if err := gdb.AutoMigrate(
		&Tenant{},
		&User{},
		&Project{},
		&ProjectRole{},
		&Stage{},
		&SubStage{},
		&BudgetItem{},
		&ChangeLog{},
		&Message{},
		&Embedding{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`ALTER TABLE embeddings ADD COLUMN IF NOT EXISTS embedding vector(%d)`, embeddingDims),

		`CREATE INDEX IF NOT EXISTS ix_embeddings_embedding_hnsw
		 ON embeddings USING hnsw (embedding vector_cosine_ops)`,

		`ALTER TABLE embeddings ADD COLUMN IF NOT EXISTS search_tsv tsvector
		 GENERATED ALWAYS AS (to_tsvector('simple', content)) STORED`,

		`CREATE INDEX IF NOT EXISTS ix_embeddings_search_tsv
		 ON embeddings USING gin (search_tsv)`,

		// UNLOGGED skips WAL: much faster writes, contents lost on crash.
		// Acceptable, cache entries are regenerated on miss.
		`CREATE UNLOGGED TABLE IF NOT EXISTS cache (
			key         TEXT PRIMARY KEY,
			value       JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at  TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS ix_cache_expires_at ON cache (expires_at)`,

		`CREATE OR REPLACE FUNCTION cache_cleanup()
		 RETURNS INTEGER
		 LANGUAGE sql
		 AS $$
			WITH deleted AS (
				DELETE FROM cache
				WHERE expires_at < now()
				RETURNING 1
			)
			SELECT count(*)::integer FROM deleted;
		 $$`,

		`CREATE OR REPLACE FUNCTION cache_get(p_key TEXT)
		 RETURNS JSONB
		 LANGUAGE sql
		 AS $$
			SELECT value FROM cache
			WHERE key = p_key AND expires_at > now()
			LIMIT 1;
		 $$`,

		`CREATE OR REPLACE FUNCTION cache_set(
			p_key TEXT,
			p_value JSONB,
			p_ttl_seconds INTEGER DEFAULT 300
		 )
		 RETURNS VOID
		 LANGUAGE sql
		 AS $$
			INSERT INTO cache (key, value, expires_at)
			VALUES (p_key, p_value, now() + (p_ttl_seconds || ' seconds')::interval)
			ON CONFLICT (key)
			DO UPDATE SET
				value = EXCLUDED.value,
				created_at = now(),
				expires_at = EXCLUDED.expires_at;
		 $$`,

		`CREATE OR REPLACE FUNCTION cache_invalidate(p_prefix TEXT)
		 RETURNS INTEGER
		 LANGUAGE sql
		 AS $$
			WITH deleted AS (
				DELETE FROM cache
				WHERE key LIKE p_prefix || '%'
				RETURNING 1
			)
			SELECT count(*)::integer FROM deleted;
		 $$`,

		`CREATE MATERIALIZED VIEW IF NOT EXISTS mv_budget_summary AS
		 SELECT
			bi.project_id,
			bi.category,
			COALESCE(SUM(bi.work_cost), 0)      AS total_work,
			COALESCE(SUM(bi.material_cost), 0)  AS total_materials,
			COALESCE(SUM(bi.prepayment), 0)     AS total_prepayments,
			COALESCE(SUM(bi.work_cost + bi.material_cost + bi.prepayment), 0) AS total_spent,
			COUNT(*)                            AS item_count,
			COUNT(*) FILTER (WHERE bi.is_confirmed) AS confirmed_count
		 FROM budget_items bi
		 GROUP BY bi.project_id, bi.category`,

		`CREATE UNIQUE INDEX IF NOT EXISTS ix_mv_budget_summary_pk
		 ON mv_budget_summary (project_id, category)`,

		`CREATE MATERIALIZED VIEW IF NOT EXISTS mv_stage_progress AS
		 SELECT
			s.project_id,
			COUNT(*)                                         AS total_stages,
			COUNT(*) FILTER (WHERE s.status = 'planned')     AS planned,
			COUNT(*) FILTER (WHERE s.status = 'in_progress') AS in_progress,
			COUNT(*) FILTER (WHERE s.status = 'completed')   AS completed,
			COUNT(*) FILTER (WHERE s.status = 'delayed')     AS delayed,
			MIN(s.start_date)                                AS earliest_start,
			MAX(s.end_date)                                  AS latest_end
		 FROM stages s
		 GROUP BY s.project_id`,

		`CREATE UNIQUE INDEX IF NOT EXISTS ix_mv_stage_progress_pk
		 ON mv_stage_progress (project_id)`,

		`CREATE OR REPLACE FUNCTION refresh_materialized_views()
		 RETURNS VOID
		 LANGUAGE plpgsql
		 AS $$
		 BEGIN
			REFRESH MATERIALIZED VIEW CONCURRENTLY mv_budget_summary;
			REFRESH MATERIALIZED VIEW CONCURRENTLY mv_stage_progress;
		 END;
		 $$`,
	}

	for _, stmt := range stmts {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	log.Println("Database schema is up to date")
	return nil
}
