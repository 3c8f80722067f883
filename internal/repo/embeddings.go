package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

// SearchHit is one retrieved chunk with its relevance score. Similarity
// hits carry cosine similarity in [0,1]; FTS hits carry ts_rank.
type SearchHit struct {
	ID       int64
	Content  string
	Metadata datatypes.JSON
	Score    float64
}

// vectorLiteral renders a dense vector in pgvector input syntax.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// InsertEmbedding stores one chunk with its vector. The vector column is
// outside the gorm model, so the insert is raw SQL.
func (r *Repo) InsertEmbedding(ctx context.Context, projectID int64, content string, metadata datatypes.JSON, vec []float32) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO embeddings (project_id, content, metadata, embedding, created_at)
		 VALUES (?, ?, ?, ?::vector, NOW())
		 RETURNING id`,
		projectID, content, metadata, vectorLiteral(vec),
	).Scan(&id).Error
	if err != nil {
		return 0, fmt.Errorf("insert embedding: %w", err)
	}
	return id, nil
}

// SearchSimilar ranks chunks by cosine similarity to the query vector and
// drops everything below minSim.
func (r *Repo) SearchSimilar(ctx context.Context, projectID int64, vec []float32, limit int, minSim float64) ([]SearchHit, error) {
	lit := vectorLiteral(vec)
	var hits []SearchHit
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, content, metadata, 1 - (embedding <=> ?::vector) AS score
		 FROM embeddings
		 WHERE project_id = ? AND embedding IS NOT NULL
		   AND 1 - (embedding <=> ?::vector) >= ?
		 ORDER BY embedding <=> ?::vector
		 LIMIT ?`,
		lit, projectID, lit, minSim, lit, limit,
	).Scan(&hits).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return hits, nil
}

// BuildFTSQuery turns free text into a prefix-match tsquery. Tokens
// shorter than two characters are dropped; the rest are OR-joined as
// lexeme:* prefixes. Returns "" when nothing is searchable.
func BuildFTSQuery(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
	var parts []string
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		parts = append(parts, f+":*")
	}
	return strings.Join(parts, " | ")
}

func isWordRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'а' && r <= 'я') || r == 'ё'
}

// SearchFTS ranks chunks by full-text match against the generated
// search_tsv column.
func (r *Repo) SearchFTS(ctx context.Context, projectID int64, text string, limit int) ([]SearchHit, error) {
	tsquery := BuildFTSQuery(text)
	if tsquery == "" {
		return nil, nil
	}
	var hits []SearchHit
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, content, metadata,
		        ts_rank(search_tsv, to_tsquery('simple', ?)) AS score
		 FROM embeddings
		 WHERE project_id = ? AND search_tsv @@ to_tsquery('simple', ?)
		 ORDER BY score DESC
		 LIMIT ?`,
		tsquery, projectID, tsquery, limit,
	).Scan(&hits).Error
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	return hits, nil
}

// CountEmbeddings reports how many chunks a project has indexed.
func (r *Repo) CountEmbeddings(ctx context.Context, projectID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM embeddings WHERE project_id = ?`, projectID,
	).Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// HasEmbeddingForMessage prevents double-indexing the same source message.
func (r *Repo) HasEmbeddingForMessage(ctx context.Context, projectID, messageID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM embeddings
		 WHERE project_id = ? AND (metadata->>'message_id')::bigint = ?`,
		projectID, messageID,
	).Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("check embedding: %w", err)
	}
	return n > 0, nil
}
