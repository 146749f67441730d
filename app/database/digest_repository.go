package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

var _ DigestRepository = (*digestRepository)(nil)

const digestColumns = `id, user_id, date, tldr, topics, sources, total_items, long_reads,
	new_count, items, generated_at, created_at, updated_at`

type digestRepository struct {
	db *DB
}

func NewDigestRepository(db *DB) DigestRepository {
	return &digestRepository{db: db}
}

func (r *digestRepository) GetDigest(ctx context.Context, userID, date string) (*Digest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+digestColumns+` FROM digests WHERE user_id = ? AND date = ?`, userID, date)

	digest, err := scanDigest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}

	return digest, nil
}

func (r *digestRepository) ListDigests(ctx context.Context, userID string, limit int) ([]Digest, error) {
	if limit <= 0 {
		limit = 7
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+digestColumns+`
		FROM digests
		WHERE user_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	defer rows.Close()

	var digests []Digest
	for rows.Next() {
		digest, err := scanDigest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan digest row: %w", err)
		}
		digests = append(digests, *digest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating digest rows: %w", err)
	}

	return digests, nil
}

// UpsertDigest writes the digest for (user, date) in one statement. An
// existing row has every content column replaced; its id and created_at are
// kept and copied back into digest.
func (r *digestRepository) UpsertDigest(ctx context.Context, digest *Digest) error {
	ts := nowMillis()
	if digest.GeneratedAt.IsZero() {
		digest.GeneratedAt = ts
	}
	digest.GeneratedAt = fromMillis(toMillis(digest.GeneratedAt))
	if digest.Topics == nil {
		digest.Topics = []string{}
	}
	if digest.Sources == nil {
		digest.Sources = []string{}
	}
	if digest.Items == nil {
		digest.Items = []DigestItem{}
	}

	topics, err := encodeJSON(digest.Topics)
	if err != nil {
		return err
	}
	sources, err := encodeJSON(digest.Sources)
	if err != nil {
		return err
	}
	items, err := encodeJSON(digest.Items)
	if err != nil {
		return err
	}

	var createdAt int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO digests (
			id, user_id, date, tldr, topics, sources, total_items, long_reads,
			new_count, items, generated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			tldr = excluded.tldr,
			topics = excluded.topics,
			sources = excluded.sources,
			total_items = excluded.total_items,
			long_reads = excluded.long_reads,
			new_count = excluded.new_count,
			items = excluded.items,
			generated_at = excluded.generated_at,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`, uuid.NewString(), digest.UserID, digest.Date, digest.TLDR, topics, sources,
		digest.Stats.TotalItems, digest.Stats.LongReads, digest.Stats.NewCount, items,
		toMillis(digest.GeneratedAt), toMillis(ts), toMillis(ts)).Scan(&digest.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert digest: %w", err)
	}

	digest.CreatedAt = fromMillis(createdAt)
	digest.UpdatedAt = ts

	return nil
}

func scanDigest(row scanner) (*Digest, error) {
	var (
		digest      Digest
		topics      string
		sources     string
		items       string
		generatedAt int64
		createdAt   int64
		updatedAt   int64
	)

	err := row.Scan(
		&digest.ID, &digest.UserID, &digest.Date, &digest.TLDR, &topics, &sources,
		&digest.Stats.TotalItems, &digest.Stats.LongReads, &digest.Stats.NewCount, &items,
		&generatedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(topics, &digest.Topics); err != nil {
		return nil, err
	}
	if err := decodeJSON(sources, &digest.Sources); err != nil {
		return nil, err
	}
	if err := decodeJSON(items, &digest.Items); err != nil {
		return nil, err
	}
	if digest.Topics == nil {
		digest.Topics = []string{}
	}
	if digest.Sources == nil {
		digest.Sources = []string{}
	}
	if digest.Items == nil {
		digest.Items = []DigestItem{}
	}

	digest.GeneratedAt = fromMillis(generatedAt)
	digest.CreatedAt = fromMillis(createdAt)
	digest.UpdatedAt = fromMillis(updatedAt)

	return &digest, nil
}
