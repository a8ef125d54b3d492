package sqlite

import (
	"database/sql"
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"

	"blurcam/internal/model"
)

// EmbeddingRepository implements repository.EmbeddingRepository for SQLite.
type EmbeddingRepository struct {
	db *DB
}

// NewEmbeddingRepository creates a new SQLite embedding repository.
func NewEmbeddingRepository(db *DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Put inserts or replaces the embedding for (encoder, label).
func (r *EmbeddingRepository) Put(emb *model.LabelEmbedding) error {
	r.db.Lock()
	defer r.db.Unlock()

	createdAt := emb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Conn().Exec(`
		INSERT OR REPLACE INTO label_embeddings (encoder, label, dim, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, emb.Encoder, emb.Label, len(emb.Vector), encodeVector(emb.Vector), createdAt)
	if err != nil {
		return errors.Wrapf(err, "failed to store embedding for %q", emb.Label)
	}
	return nil
}

// Get returns the cached embedding, or nil when there is none.
func (r *EmbeddingRepository) Get(encoder, label string) (*model.LabelEmbedding, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var (
		dim  int
		blob []byte
		emb  = model.LabelEmbedding{Encoder: encoder, Label: label}
	)
	err := r.db.Conn().QueryRow(`
		SELECT dim, vector, created_at
		FROM label_embeddings WHERE encoder = ? AND label = ?
	`, encoder, label).Scan(&dim, &blob, &emb.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get embedding for %q", label)
	}

	emb.Vector, err = decodeVector(blob, dim)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt embedding for %q", label)
	}
	return &emb, nil
}

// Labels lists the labels cached for an encoder in alphabetical order.
func (r *EmbeddingRepository) Labels(encoder string) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT label FROM label_embeddings WHERE encoder = ? ORDER BY label
	`, encoder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query labels")
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, errors.Wrap(err, "failed to scan label")
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// DeleteByEncoder removes every embedding produced by an encoder.
func (r *EmbeddingRepository) DeleteByEncoder(encoder string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM label_embeddings WHERE encoder = ?`, encoder); err != nil {
		return errors.Wrap(err, "failed to delete embeddings")
	}
	return nil
}

// encodeVector stores float32 values little-endian, 4 bytes each.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, error) {
	if len(buf) != 4*dim {
		return nil, errors.Errorf("expected %d bytes, got %d", 4*dim, len(buf))
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
