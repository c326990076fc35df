package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/recallion/recallion/internal/core"
)

// Overselect factor for KNN queries: the owner filter is applied after the
// nearest-neighbor scan, so asking for exactly topK rows would undercount.
const knnOverselect = 4

type MemoryRepo struct {
	db *sql.DB
}

func NewMemoryRepo(db *sql.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

func (r *MemoryRepo) Insert(ctx context.Context, m *core.Memory) error {
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	keywords, err := marshalList(m.Keywords)
	if err != nil {
		return err
	}
	tags, err := marshalList(m.Tags)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO memories (id, owner_id, content, summary, keywords, tags, importance, ai_insight, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OwnerID, m.Content,
		nullString(m.Summary), keywords, tags, nullInt(m.Importance),
		nullString(m.AIInsight), nullString(m.ImageURL), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	if len(m.Embedding) > 0 {
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertVector(ctx, tx, rowID, m.Embedding); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *MemoryRepo) Get(ctx context.Context, ownerID, id string) (core.Memory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT m.id, m.owner_id, m.content, m.summary, m.keywords, m.tags, m.importance,
		        m.ai_insight, m.image_url, m.created_at, m.updated_at, v.embedding
		 FROM memories m
		 LEFT JOIN memories_vec v ON v.rowid = m.rowid
		 WHERE m.id = ? AND m.owner_id = ?`,
		id, ownerID,
	)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return core.Memory{}, core.ErrNotFound
	}
	if err != nil {
		return core.Memory{}, fmt.Errorf("failed to get memory: %w", err)
	}
	return m, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, orderBy core.OrderBy, limit int) ([]core.Memory, error) {
	var order string
	switch orderBy {
	case core.OrderByImportanceDesc:
		order = "m.importance DESC, m.created_at DESC"
	default:
		order = "m.created_at DESC"
	}

	query := fmt.Sprintf(
		`SELECT m.id, m.owner_id, m.content, m.summary, m.keywords, m.tags, m.importance,
		        m.ai_insight, m.image_url, m.created_at, m.updated_at, v.embedding
		 FROM memories m
		 LEFT JOIN memories_vec v ON v.rowid = m.rowid
		 WHERE m.owner_id = ?
		 ORDER BY %s
		 LIMIT ?`, order)

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	var memories []core.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (r *MemoryRepo) Update(ctx context.Context, ownerID, id string, patch core.MemoryPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Ownership check and rowid lookup in one shot.
	var rowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM memories WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&rowID)
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to resolve memory: %w", err)
	}

	sets, args, err := buildPatch(patch)
	if err != nil {
		return err
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().UTC())
		args = append(args, id, ownerID)

		query := fmt.Sprintf(`UPDATE memories SET %s WHERE id = ? AND owner_id = ?`, strings.Join(sets, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update memory: %w", err)
		}
	}

	if patch.Embedding != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM memories_vec WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("failed to clear memory vector: %w", err)
		}
		if len(*patch.Embedding) > 0 {
			if err := insertVector(ctx, tx, rowID, *patch.Embedding); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM memories WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&rowID)
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to resolve memory: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memories_vec WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("failed to delete memory vector: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	return tx.Commit()
}

func (r *MemoryRepo) SimilaritySearch(ctx context.Context, ownerID string, vector []float32, threshold float32, topK int) ([]core.RetrievedMemory, error) {
	vecBlob, err := serializeVector(vector)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT m.id, m.owner_id, m.content, m.summary, m.keywords, m.tags, m.importance,
		       m.ai_insight, m.image_url, m.created_at, m.updated_at, v.embedding, v.distance
		FROM memories_vec v
		JOIN memories m ON m.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ? AND m.owner_id = ?
		ORDER BY v.distance`

	rows, err := r.db.QueryContext(ctx, query, vecBlob, topK*knnOverselect, ownerID)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var results []core.RetrievedMemory
	for rows.Next() {
		var distance float32
		m, err := scanMemoryWith(rows, &distance)
		if err != nil {
			return nil, err
		}

		similarity := 1 - distance
		if similarity < threshold {
			continue
		}
		results = append(results, core.RetrievedMemory{Memory: m, Score: similarity})
		if len(results) == topK {
			break
		}
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (core.Memory, error) {
	return scanMemoryWith(row)
}

func scanMemoryWith(row rowScanner, extra ...any) (core.Memory, error) {
	var m core.Memory
	var summary, keywords, tags, aiInsight, imageURL sql.NullString
	var importance sql.NullInt64
	var updatedAt sql.NullTime
	var vecBlob []byte

	dest := []any{
		&m.ID, &m.OwnerID, &m.Content, &summary, &keywords, &tags, &importance,
		&aiInsight, &imageURL, &m.CreatedAt, &updatedAt, &vecBlob,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return core.Memory{}, err
	}

	m.Summary = summary.String
	m.AIInsight = aiInsight.String
	m.ImageURL = imageURL.String
	m.Importance = int(importance.Int64)
	if updatedAt.Valid {
		t := updatedAt.Time
		m.UpdatedAt = &t
	}
	if err := unmarshalList(keywords, &m.Keywords); err != nil {
		return core.Memory{}, err
	}
	if err := unmarshalList(tags, &m.Tags); err != nil {
		return core.Memory{}, err
	}
	if len(vecBlob) > 0 {
		vec, err := deserializeVector(vecBlob)
		if err != nil {
			return core.Memory{}, err
		}
		m.Embedding = vec
	}
	return m, nil
}

func buildPatch(patch core.MemoryPatch) ([]string, []any, error) {
	var sets []string
	var args []any

	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.Summary != nil {
		add("summary", nullString(*patch.Summary))
	}
	if patch.Keywords != nil {
		v, err := marshalList(*patch.Keywords)
		if err != nil {
			return nil, nil, err
		}
		add("keywords", v)
	}
	if patch.Tags != nil {
		v, err := marshalList(*patch.Tags)
		if err != nil {
			return nil, nil, err
		}
		add("tags", v)
	}
	if patch.Importance != nil {
		add("importance", nullInt(*patch.Importance))
	}
	if patch.AIInsight != nil {
		add("ai_insight", nullString(*patch.AIInsight))
	}
	if patch.ImageURL != nil {
		add("image_url", nullString(*patch.ImageURL))
	}
	return sets, args, nil
}

func insertVector(ctx context.Context, tx *sql.Tx, rowID int64, vec []float32) error {
	vecBlob, err := serializeVector(vec)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO memories_vec (rowid, embedding) VALUES (?, ?)`, rowID, vecBlob); err != nil {
		return fmt.Errorf("failed to insert memory vector: %w", err)
	}
	return nil
}

func marshalList(list []string) (any, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list: %w", err)
	}
	return string(b), nil
}

func unmarshalList(s sql.NullString, out *[]string) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), out); err != nil {
		return fmt.Errorf("failed to unmarshal list: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
