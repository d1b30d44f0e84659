package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// DefaultFileName is the database file created under the data directory.
const DefaultFileName = "chunks.db"

const chunkColumns = "id, source_name, sequence_index, content, embedding, metadata, created_at"

// Store is a SQLite-backed chunk store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at dbPath and applies migrations.
// If dbPath is empty, defaults to ~/.assistant/data/chunks.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".assistant", "data", DefaultFileName)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode so scans don't block writers
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, domain.NewStorageError("open", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.NewStorageError("open", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending up migrations and records each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_chunks.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, domain.NewStorageError("schema version", err)
	}
	return v, nil
}

// Put stores chunk and returns its ID.
func (s *Store) Put(ctx context.Context, chunk *domain.Chunk) (string, error) {
	id := chunk.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := chunk.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metadataJSON, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshalling chunk metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, source_name, sequence_index, content, embedding, dimensions, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, chunk.SourceName, chunk.SequenceIndex, chunk.Text,
		float32SliceToBytes(chunk.Embedding), len(chunk.Embedding), metadataJSON, createdAt.UnixNano())
	if err != nil {
		return "", domain.NewStorageError("put", err)
	}
	return id, nil
}

// ExistsForSource reports whether any chunk carries sourceName.
func (s *Store) ExistsForSource(ctx context.Context, sourceName string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM chunks WHERE source_name = ?)", sourceName).Scan(&exists)
	if err != nil {
		return false, domain.NewStorageError("exists", err)
	}
	return exists == 1, nil
}

// ScanWithEmbeddings streams every chunk with an embedding in rowid order.
func (s *Store) ScanWithEmbeddings(ctx context.Context, fn func(domain.Chunk) error) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE dimensions > 0 ORDER BY rowid")
	if err != nil {
		return domain.NewStorageError("scan", err)
	}
	defer rows.Close()

	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return domain.NewStorageError("scan", err)
		}
		if err := fn(*chunk); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.NewStorageError("scan", err)
	}
	return nil
}

// DeleteBySource removes every chunk with sourceName, one row at a time.
// Rows that fail to delete are logged and skipped.
func (s *Store) DeleteBySource(ctx context.Context, sourceName string) (int, error) {
	ids, err := s.ChunkIDsForSource(ctx, sourceName)
	if err != nil {
		return 0, err
	}
	return s.deleteIDs(ctx, ids)
}

// DeleteChunks removes the chunks with the given IDs. Unknown IDs are
// ignored; rows that fail to delete are logged and skipped.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) (int, error) {
	return s.deleteIDs(ctx, ids)
}

func (s *Store) deleteIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.NewStorageError("delete", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE id = ?")
	if err != nil {
		return 0, domain.NewStorageError("delete", err)
	}
	defer stmt.Close()

	deleted := 0
	var rowErrs []error
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			logger.Warn("Failed to delete chunk %s: %v", id, err)
			rowErrs = append(rowErrs, fmt.Errorf("chunk %s: %w", id, err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.NewStorageError("delete", err)
	}

	if deleted == 0 && len(rowErrs) > 0 {
		return 0, domain.NewStorageError("delete", errors.Join(rowErrs...))
	}
	return deleted, nil
}

// ChunkIDsForSource returns the IDs of every chunk with sourceName.
func (s *Store) ChunkIDsForSource(ctx context.Context, sourceName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM chunks WHERE source_name = ? ORDER BY rowid", sourceName)
	if err != nil {
		return nil, domain.NewStorageError("list ids", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewStorageError("list ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list ids", err)
	}
	return ids, nil
}

// CountMissingEmbeddings returns how many chunks have no embedding.
func (s *Store) CountMissingEmbeddings(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE dimensions = 0").Scan(&n); err != nil {
		return 0, domain.NewStorageError("count missing", err)
	}
	return n, nil
}

// Count returns the total number of chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, domain.NewStorageError("count", err)
	}
	return n, nil
}

// ListMissingEmbeddings returns up to limit chunks without an embedding.
func (s *Store) ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Chunk, error) {
	query := "SELECT " + chunkColumns + " FROM chunks WHERE dimensions = 0 ORDER BY rowid"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError("list missing", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, domain.NewStorageError("list missing", err)
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list missing", err)
	}
	return chunks, nil
}

// SetEmbedding back-fills the embedding of a chunk that has none.
func (s *Store) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("set embedding", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var dims int
	var metadataJSON sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT dimensions, metadata FROM chunks WHERE id = ?", id).
		Scan(&dims, &metadataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return domain.NewStorageError("set embedding", err)
	}
	if dims > 0 {
		return domain.ErrEmbeddingAlreadySet
	}

	md, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return domain.NewStorageError("set embedding", err)
	}
	delete(md, domain.MetaEmbeddingPending)
	updated, err := marshalMetadata(md)
	if err != nil {
		return fmt.Errorf("marshalling chunk metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE chunks SET embedding = ?, dimensions = ?, metadata = ? WHERE id = ? AND dimensions = 0",
		float32SliceToBytes(vec), len(vec), updated, id)
	if err != nil {
		return domain.NewStorageError("set embedding", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("set embedding", err)
	}
	return nil
}

// ListSources summarises chunk counts per source, ordered by name.
func (s *Store) ListSources(ctx context.Context) ([]domain.SourceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_name, COUNT(*), MAX(created_at)
		FROM chunks
		GROUP BY source_name
		ORDER BY source_name
	`)
	if err != nil {
		return nil, domain.NewStorageError("list sources", err)
	}
	defer rows.Close()

	var sources []domain.SourceSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sum domain.SourceSummary
		var last int64
		if err := rows.Scan(&sum.SourceName, &sum.ChunkCount, &last); err != nil {
			return nil, domain.NewStorageError("list sources", err)
		}
		sum.LastIngested = time.Unix(0, last).UTC()
		sources = append(sources, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list sources", err)
	}
	return sources, nil
}

// ==================== Helper Functions ====================

// scanChunk scans a row selected with chunkColumns.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var c domain.Chunk
	var embedding []byte
	var metadataJSON sql.NullString
	var createdAt int64

	if err := rows.Scan(&c.ID, &c.SourceName, &c.SequenceIndex, &c.Text,
		&embedding, &metadataJSON, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	md, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
	}
	if len(md) > 0 {
		c.Metadata = md
	}
	c.Embedding = bytesToFloat32Slice(embedding)
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return &c, nil
}

func marshalMetadata(md map[string]any) (any, error) {
	if len(md) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalMetadata(raw sql.NullString) (map[string]any, error) {
	md := map[string]any{}
	if !raw.Valid || raw.String == "" {
		return md, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &md); err != nil {
		return nil, err
	}
	return md, nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a little-endian byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
