package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
)

// CompressionAlgo specifies how journal details are stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the details size above which payloads are compressed.
const DefaultCompressThreshold = 10 * 1024

// journalRow is the stored form of a quote.JournalEntry.
type journalRow struct {
	ID                id.ID           `db:"id"`
	QuoteID           id.ID           `db:"quote_id"`
	Action            string          `db:"action"`
	UserID            string          `db:"user_id"`
	Details           json.RawMessage `db:"details"`
	DetailsCompressed []byte          `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// JournalStore persists the quote journal. Large details (big import
// warning lists) are zstd-compressed.
type JournalStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ quote.JournalRepository = (*JournalStore)(nil)

// NewJournalStore creates a journal store.
func NewJournalStore(txManager *TxManager) (*JournalStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &JournalStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// Save implements quote.JournalRepository.
func (s *JournalStore) Save(ctx context.Context, entry *quote.JournalEntry) error {
	row, err := s.encode(entry)
	if err != nil {
		return err
	}

	sql := `
		INSERT INTO quote_journal (
			id, quote_id, action, user_id,
			details, details_compressed, compression_algo,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		row.ID, row.QuoteID, row.Action, row.UserID,
		row.Details, row.DetailsCompressed, row.CompressionAlgo,
		row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ListByQuote implements quote.JournalRepository, oldest first.
func (s *JournalStore) ListByQuote(ctx context.Context, quoteID id.ID) ([]quote.JournalEntry, error) {
	sql := `
		SELECT id, quote_id, action, user_id,
			   details, details_compressed, compression_algo,
			   created_at
		FROM quote_journal
		WHERE quote_id = $1
		ORDER BY created_at, id
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []quote.JournalEntry{}
	for rows.Next() {
		var r journalRow
		err := rows.Scan(
			&r.ID, &r.QuoteID, &r.Action, &r.UserID,
			&r.Details, &r.DetailsCompressed, &r.CompressionAlgo,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}

		entry, err := s.decode(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *JournalStore) encode(entry *quote.JournalEntry) (journalRow, error) {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return journalRow{}, fmt.Errorf("marshal journal details: %w", err)
	}

	row := journalRow{
		ID:              entry.ID,
		QuoteID:         entry.QuoteID,
		Action:          entry.Action,
		UserID:          entry.UserID,
		Details:         details,
		CompressionAlgo: CompressionNone,
		CreatedAt:       entry.CreatedAt,
	}
	if id.IsNil(row.ID) {
		row.ID = id.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	if len(details) > s.compressThreshold {
		row.DetailsCompressed = s.encoder.EncodeAll(details, nil)
		row.Details = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row, nil
}

func (s *JournalStore) decode(r journalRow) (quote.JournalEntry, error) {
	details := []byte(r.Details)
	if r.CompressionAlgo == CompressionZstd && len(r.DetailsCompressed) > 0 {
		decompressed, err := s.decoder.DecodeAll(r.DetailsCompressed, nil)
		if err != nil {
			return quote.JournalEntry{}, fmt.Errorf("decompress journal details: %w", err)
		}
		details = decompressed
	}

	entry := quote.JournalEntry{
		ID:        r.ID,
		QuoteID:   r.QuoteID,
		Action:    r.Action,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			return quote.JournalEntry{}, fmt.Errorf("unmarshal journal details: %w", err)
		}
	}
	return entry, nil
}
