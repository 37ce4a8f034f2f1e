package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dshills/notekb/pkg/types"
)

// ErrNotFound is returned when a lookup by key finds no row.
var ErrNotFound = errors.New("storage: not found")

// ErrAlreadyExists is returned when an insert would violate a uniqueness
// constraint the caller should have checked for first.
var ErrAlreadyExists = errors.New("storage: already exists")

// ErrBuildBusy is returned by a build phase (ingest, embed, cluster) that
// could not acquire the BuildLock because another build is in progress.
var ErrBuildBusy = errors.New("storage: build already in progress")

// ErrCorrupt is returned when a stored value fails the invariants its type
// requires on write or read — an embedding whose Dims disagrees with its
// vector length or whose vector isn't unit-norm, for example. A build that
// hits this means the store itself needs to be rebuilt, not retried.
var ErrCorrupt = errors.New("storage: corrupt")

// querier is satisfied by both *sql.DB and *sql.Tx, letting every CRUD
// helper below run identically inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// openDatabase opens the SQLite file at path with the pragmas the store
// depends on: WAL journaling for concurrent readers, a single connection
// (SQLite serializes writers regardless, and a single connection avoids
// "database is locked" churn under the purego driver), and foreign keys on
// so the cascades declared in the schema actually fire.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// SQLiteStorage is the Store implementation backed by a single SQLite file.
type SQLiteStorage struct {
	db   *sql.DB
	lock *BuildLock
}

// NewSQLiteStorage opens (creating if necessary) the database at path and
// applies any pending migrations.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &SQLiteStorage{db: db, lock: NewBuildLock()}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BuildLock returns the store's coarse write lock, shared by the ingestor,
// the embed build, and the clusterer so at most one build runs at a time.
func (s *SQLiteStorage) BuildLock() *BuildLock {
	return s.lock
}

// BeginTx starts a transaction. Nested transactions are not supported;
// calling BeginTx on the returned Tx returns an error.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *types.File) error {
	return upsertFileWithQuerier(ctx, s.db, file)
}
func (s *SQLiteStorage) GetFile(ctx context.Context, filePath string) (*types.File, error) {
	return getFileWithQuerier(ctx, s.db, filePath)
}
func (s *SQLiteStorage) DeleteFile(ctx context.Context, filePath string) error {
	return deleteFileWithQuerier(ctx, s.db, filePath)
}
func (s *SQLiteStorage) ListFiles(ctx context.Context) ([]*types.File, error) {
	return listFilesWithQuerier(ctx, s.db)
}
func (s *SQLiteStorage) ReplacePassages(ctx context.Context, filePath string, passages []*types.Passage) error {
	return replacePassagesWithQuerier(ctx, s.db, filePath, passages)
}
func (s *SQLiteStorage) GetPassage(ctx context.Context, passageID int64) (*types.Passage, error) {
	return getPassageWithQuerier(ctx, s.db, passageID)
}
func (s *SQLiteStorage) ListPassagesByFile(ctx context.Context, filePath string) ([]*types.Passage, error) {
	return listPassagesByFileWithQuerier(ctx, s.db, filePath)
}
func (s *SQLiteStorage) CountPassages(ctx context.Context) (int, error) {
	return countPassagesWithQuerier(ctx, s.db)
}
func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *types.Embedding) error {
	return upsertEmbeddingWithQuerier(ctx, s.db, embedding)
}
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, passageID int64) (*types.Embedding, error) {
	return getEmbeddingWithQuerier(ctx, s.db, passageID)
}
func (s *SQLiteStorage) ListEmbeddings(ctx context.Context, model string) ([]*types.Embedding, error) {
	return listEmbeddingsWithQuerier(ctx, s.db, model)
}
func (s *SQLiteStorage) DeleteEmbeddingsByFile(ctx context.Context, filePath string) error {
	return deleteEmbeddingsByFileWithQuerier(ctx, s.db, filePath)
}
func (s *SQLiteStorage) SearchText(ctx context.Context, query string, limit int, weights FieldWeights) ([]TextResult, error) {
	return searchTextWithQuerier(ctx, s.db, query, limit, weights)
}
func (s *SQLiteStorage) ReplaceClusters(ctx context.Context, method string, clusters []*types.Cluster, members [][]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := replaceClustersWithQuerier(ctx, tx, method, clusters, members); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
func (s *SQLiteStorage) GetCluster(ctx context.Context, clusterID int64) (*types.Cluster, error) {
	return getClusterWithQuerier(ctx, s.db, clusterID)
}
func (s *SQLiteStorage) ListClusters(ctx context.Context, method string) ([]*types.Cluster, error) {
	return listClustersWithQuerier(ctx, s.db, method)
}
func (s *SQLiteStorage) ListClusterMembers(ctx context.Context, clusterID int64) ([]int64, error) {
	return listClusterMembersWithQuerier(ctx, s.db, clusterID)
}
func (s *SQLiteStorage) GetClusterForPassage(ctx context.Context, passageID int64) (int64, bool, error) {
	return getClusterForPassageWithQuerier(ctx, s.db, passageID)
}
func (s *SQLiteStorage) UpsertModule(ctx context.Context, module *types.Module) error {
	return upsertModuleWithQuerier(ctx, s.db, module)
}
func (s *SQLiteStorage) ListModules(ctx context.Context) ([]*types.Module, error) {
	return listModulesWithQuerier(ctx, s.db)
}
func (s *SQLiteStorage) SetFileModule(ctx context.Context, fm *types.FileModule) error {
	return setFileModuleWithQuerier(ctx, s.db, fm)
}
func (s *SQLiteStorage) GetFileModule(ctx context.Context, filePath string) (*types.FileModule, error) {
	return getFileModuleWithQuerier(ctx, s.db, filePath)
}
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return getStatusWithQuerier(ctx, s.db)
}

// sqliteTx wraps a *sql.Tx and implements the same Store methods by
// delegating to the shared xxxWithQuerier helpers.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }
func (t *sqliteTx) Close() error    { return fmt.Errorf("close not supported on a transaction") }
func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTx) UpsertFile(ctx context.Context, file *types.File) error {
	return upsertFileWithQuerier(ctx, t.tx, file)
}
func (t *sqliteTx) GetFile(ctx context.Context, filePath string) (*types.File, error) {
	return getFileWithQuerier(ctx, t.tx, filePath)
}
func (t *sqliteTx) DeleteFile(ctx context.Context, filePath string) error {
	return deleteFileWithQuerier(ctx, t.tx, filePath)
}
func (t *sqliteTx) ListFiles(ctx context.Context) ([]*types.File, error) {
	return listFilesWithQuerier(ctx, t.tx)
}
func (t *sqliteTx) ReplacePassages(ctx context.Context, filePath string, passages []*types.Passage) error {
	return replacePassagesWithQuerier(ctx, t.tx, filePath, passages)
}
func (t *sqliteTx) GetPassage(ctx context.Context, passageID int64) (*types.Passage, error) {
	return getPassageWithQuerier(ctx, t.tx, passageID)
}
func (t *sqliteTx) ListPassagesByFile(ctx context.Context, filePath string) ([]*types.Passage, error) {
	return listPassagesByFileWithQuerier(ctx, t.tx, filePath)
}
func (t *sqliteTx) CountPassages(ctx context.Context) (int, error) {
	return countPassagesWithQuerier(ctx, t.tx)
}
func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *types.Embedding) error {
	return upsertEmbeddingWithQuerier(ctx, t.tx, embedding)
}
func (t *sqliteTx) GetEmbedding(ctx context.Context, passageID int64) (*types.Embedding, error) {
	return getEmbeddingWithQuerier(ctx, t.tx, passageID)
}
func (t *sqliteTx) ListEmbeddings(ctx context.Context, model string) ([]*types.Embedding, error) {
	return listEmbeddingsWithQuerier(ctx, t.tx, model)
}
func (t *sqliteTx) DeleteEmbeddingsByFile(ctx context.Context, filePath string) error {
	return deleteEmbeddingsByFileWithQuerier(ctx, t.tx, filePath)
}
func (t *sqliteTx) SearchText(ctx context.Context, query string, limit int, weights FieldWeights) ([]TextResult, error) {
	return searchTextWithQuerier(ctx, t.tx, query, limit, weights)
}
func (t *sqliteTx) ReplaceClusters(ctx context.Context, method string, clusters []*types.Cluster, members [][]int64) error {
	return replaceClustersWithQuerier(ctx, t.tx, method, clusters, members)
}
func (t *sqliteTx) GetCluster(ctx context.Context, clusterID int64) (*types.Cluster, error) {
	return getClusterWithQuerier(ctx, t.tx, clusterID)
}
func (t *sqliteTx) ListClusters(ctx context.Context, method string) ([]*types.Cluster, error) {
	return listClustersWithQuerier(ctx, t.tx, method)
}
func (t *sqliteTx) ListClusterMembers(ctx context.Context, clusterID int64) ([]int64, error) {
	return listClusterMembersWithQuerier(ctx, t.tx, clusterID)
}
func (t *sqliteTx) GetClusterForPassage(ctx context.Context, passageID int64) (int64, bool, error) {
	return getClusterForPassageWithQuerier(ctx, t.tx, passageID)
}
func (t *sqliteTx) UpsertModule(ctx context.Context, module *types.Module) error {
	return upsertModuleWithQuerier(ctx, t.tx, module)
}
func (t *sqliteTx) ListModules(ctx context.Context) ([]*types.Module, error) {
	return listModulesWithQuerier(ctx, t.tx)
}
func (t *sqliteTx) SetFileModule(ctx context.Context, fm *types.FileModule) error {
	return setFileModuleWithQuerier(ctx, t.tx, fm)
}
func (t *sqliteTx) GetFileModule(ctx context.Context, filePath string) (*types.FileModule, error) {
	return getFileModuleWithQuerier(ctx, t.tx, filePath)
}
func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return getStatusWithQuerier(ctx, t.tx)
}

// --- File ---

func upsertFileWithQuerier(ctx context.Context, q querier, file *types.File) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO files (path, mtime, size_bytes, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			size_bytes = excluded.size_bytes,
			content_hash = excluded.content_hash,
			indexed_at = CURRENT_TIMESTAMP
	`, file.Path, file.MTime, file.Size, file.Hash)
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

func getFileWithQuerier(ctx context.Context, q querier, filePath string) (*types.File, error) {
	var f types.File
	var mtime sql.NullTime
	err := q.QueryRowContext(ctx, `SELECT path, mtime, size_bytes, content_hash FROM files WHERE path = ?`, filePath).
		Scan(&f.Path, &mtime, &f.Size, &f.Hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if mtime.Valid {
		f.MTime = mtime.Time
	}
	return &f, nil
}

func deleteFileWithQuerier(ctx context.Context, q querier, filePath string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, filePath); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func listFilesWithQuerier(ctx context.Context, q querier) ([]*types.File, error) {
	rows, err := q.QueryContext(ctx, `SELECT path, mtime, size_bytes, content_hash FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.File
	for rows.Next() {
		var f types.File
		var mtime sql.NullTime
		if err := rows.Scan(&f.Path, &mtime, &f.Size, &f.Hash); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if mtime.Valid {
			f.MTime = mtime.Time
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// --- Passages ---

func replacePassagesWithQuerier(ctx context.Context, q querier, filePath string, passages []*types.Passage) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM passages WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("delete passages: %w", err)
	}
	for _, p := range passages {
		res, err := q.ExecContext(ctx, `
			INSERT INTO passages (file_path, heading, ordinal, content, content_len)
			VALUES (?, ?, ?, ?, ?)
		`, filePath, p.Heading, p.Ordinal, p.Body, p.BodyLen)
		if err != nil {
			return fmt.Errorf("insert passage: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("passage id: %w", err)
		}
		p.ID = id
		p.FilePath = filePath
	}
	return nil
}

func getPassageWithQuerier(ctx context.Context, q querier, passageID int64) (*types.Passage, error) {
	var p types.Passage
	var heading sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, file_path, heading, ordinal, content, content_len
		FROM passages WHERE id = ?
	`, passageID).Scan(&p.ID, &p.FilePath, &heading, &p.Ordinal, &p.Body, &p.BodyLen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get passage: %w", err)
	}
	if heading.Valid {
		p.Heading = &heading.String
	}
	return &p, nil
}

func listPassagesByFileWithQuerier(ctx context.Context, q querier, filePath string) ([]*types.Passage, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, file_path, heading, ordinal, content, content_len
		FROM passages WHERE file_path = ? ORDER BY ordinal
	`, filePath)
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Passage
	for rows.Next() {
		var p types.Passage
		var heading sql.NullString
		if err := rows.Scan(&p.ID, &p.FilePath, &heading, &p.Ordinal, &p.Body, &p.BodyLen); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		if heading.Valid {
			p.Heading = &heading.String
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func countPassagesWithQuerier(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// --- Embeddings ---

func upsertEmbeddingWithQuerier(ctx context.Context, q querier, e *types.Embedding) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO embeddings (passage_id, model, dims, vector, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(passage_id) DO UPDATE SET
			model = excluded.model,
			dims = excluded.dims,
			vector = excluded.vector,
			created_at = CURRENT_TIMESTAMP
	`, e.PassageID, e.Model, e.Dims, serializeVector(e.Vector))
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

func getEmbeddingWithQuerier(ctx context.Context, q querier, passageID int64) (*types.Embedding, error) {
	var e types.Embedding
	var blob []byte
	e.PassageID = passageID
	err := q.QueryRowContext(ctx, `SELECT model, dims, vector FROM embeddings WHERE passage_id = ?`, passageID).
		Scan(&e.Model, &e.Dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	e.Vector = deserializeVector(blob)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &e, nil
}

func listEmbeddingsWithQuerier(ctx context.Context, q querier, model string) ([]*types.Embedding, error) {
	query := `SELECT passage_id, model, dims, vector FROM embeddings`
	args := []interface{}{}
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY passage_id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Embedding
	for rows.Next() {
		var e types.Embedding
		var blob []byte
		if err := rows.Scan(&e.PassageID, &e.Model, &e.Dims, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		e.Vector = deserializeVector(blob)
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func deleteEmbeddingsByFileWithQuerier(ctx context.Context, q querier, filePath string) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM embeddings WHERE passage_id IN (SELECT id FROM passages WHERE file_path = ?)
	`, filePath)
	if err != nil {
		return fmt.Errorf("delete embeddings by file: %w", err)
	}
	return nil
}

// --- Search ---

func searchTextWithQuerier(ctx context.Context, q querier, query string, limit int, weights FieldWeights) ([]TextResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	matchQuery := buildMatchQuery(query)
	if matchQuery == "" {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT passages_fts.rowid, bm25(passages_fts, ?, ?, ?) AS score
		FROM passages_fts
		WHERE passages_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, weights.Content, weights.Heading, weights.FilePath, matchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TextResult
	for rows.Next() {
		var r TextResult
		if err := rows.Scan(&r.PassageID, &r.Score); err != nil {
			return nil, fmt.Errorf("scan text result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Clusters ---

func replaceClustersWithQuerier(ctx context.Context, q querier, method string, clusters []*types.Cluster, members [][]int64) error {
	if _, err := q.ExecContext(ctx, `
		DELETE FROM cluster_members WHERE cluster_id IN (SELECT id FROM clusters WHERE method = ?)
	`, method); err != nil {
		return fmt.Errorf("delete cluster members: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM clusters WHERE method = ?`, method); err != nil {
		return fmt.Errorf("delete clusters: %w", err)
	}

	for i, c := range clusters {
		res, err := q.ExecContext(ctx, `
			INSERT INTO clusters (method, k, name, summary, size, centroid)
			VALUES (?, ?, ?, ?, ?, ?)
		`, method, c.K, c.Name, c.Summary, c.Size, serializeVector(c.Centroid))
		if err != nil {
			return fmt.Errorf("insert cluster: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("cluster id: %w", err)
		}
		c.ID = id
		c.Method = method

		if i >= len(members) {
			continue
		}
		for _, passageID := range members[i] {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO cluster_members (cluster_id, passage_id) VALUES (?, ?)
			`, id, passageID); err != nil {
				return fmt.Errorf("insert cluster member: %w", err)
			}
		}
	}
	return nil
}

func getClusterWithQuerier(ctx context.Context, q querier, clusterID int64) (*types.Cluster, error) {
	var c types.Cluster
	var summary sql.NullString
	var blob []byte
	err := q.QueryRowContext(ctx, `
		SELECT id, method, k, name, summary, size, centroid FROM clusters WHERE id = ?
	`, clusterID).Scan(&c.ID, &c.Method, &c.K, &c.Name, &summary, &c.Size, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cluster: %w", err)
	}
	if summary.Valid {
		c.Summary = &summary.String
	}
	c.Centroid = deserializeVector(blob)
	return &c, nil
}

func listClustersWithQuerier(ctx context.Context, q querier, method string) ([]*types.Cluster, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, method, k, name, summary, size, centroid FROM clusters WHERE method = ? ORDER BY id
	`, method)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Cluster
	for rows.Next() {
		var c types.Cluster
		var summary sql.NullString
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Method, &c.K, &c.Name, &summary, &c.Size, &blob); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		if summary.Valid {
			c.Summary = &summary.String
		}
		c.Centroid = deserializeVector(blob)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func listClusterMembersWithQuerier(ctx context.Context, q querier, clusterID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT passage_id FROM cluster_members WHERE cluster_id = ? ORDER BY passage_id
	`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("list cluster members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cluster member: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func getClusterForPassageWithQuerier(ctx context.Context, q querier, passageID int64) (int64, bool, error) {
	var clusterID int64
	err := q.QueryRowContext(ctx, `SELECT cluster_id FROM cluster_members WHERE passage_id = ?`, passageID).Scan(&clusterID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cluster for passage: %w", err)
	}
	return clusterID, true, nil
}

// --- Modules ---

func upsertModuleWithQuerier(ctx context.Context, q querier, m *types.Module) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO modules (name, description) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET description = excluded.description
		RETURNING id
	`, m.Name, m.Description).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("upsert module: %w", err)
	}
	return nil
}

func listModulesWithQuerier(ctx context.Context, q querier) ([]*types.Module, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, description FROM modules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Module
	for rows.Next() {
		var m types.Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Description); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func setFileModuleWithQuerier(ctx context.Context, q querier, fm *types.FileModule) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO file_modules (file_path, module_id, score) VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			module_id = excluded.module_id,
			score = excluded.score
	`, fm.FilePath, fm.ModuleID, fm.Score)
	if err != nil {
		return fmt.Errorf("set file module: %w", err)
	}
	return nil
}

func getFileModuleWithQuerier(ctx context.Context, q querier, filePath string) (*types.FileModule, error) {
	var fm types.FileModule
	fm.FilePath = filePath
	err := q.QueryRowContext(ctx, `SELECT module_id, score FROM file_modules WHERE file_path = ?`, filePath).
		Scan(&fm.ModuleID, &fm.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file module: %w", err)
	}
	return &fm, nil
}

// --- Status ---

func getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{}

	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&status.FilesCount); err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&status.PassagesCount); err != nil {
		return nil, fmt.Errorf("count passages: %w", err)
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&status.EmbeddingsCount); err != nil {
		return nil, fmt.Errorf("count embeddings: %w", err)
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM clusters`).Scan(&status.ClustersCount); err != nil {
		return nil, fmt.Errorf("count clusters: %w", err)
	}

	var lastIndexed sql.NullTime
	if err := q.QueryRowContext(ctx, `SELECT MAX(indexed_at) FROM files`).Scan(&lastIndexed); err != nil {
		return nil, fmt.Errorf("last indexed: %w", err)
	}
	if lastIndexed.Valid {
		status.LastIndexedAt = lastIndexed.Time
	}

	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("page_count: %w", err)
	}
	if err := q.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("page_size: %w", err)
	}
	status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexBuilt:       true,
	}

	return status, nil
}

// BuildLock is a non-blocking mutual-exclusion flag over the three build
// phases (ingest, embed, cluster): at most one may run at a time, and a
// concurrent attempt fails fast rather than queuing behind the one in
// progress.
type BuildLock struct {
	state atomic.Int32
}

// NewBuildLock returns an unlocked BuildLock.
func NewBuildLock() *BuildLock {
	return &BuildLock{}
}

// TryAcquire attempts to take the lock, returning false if a build is
// already in progress.
func (l *BuildLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock for the next build attempt.
func (l *BuildLock) Release() {
	l.state.Store(0)
}
