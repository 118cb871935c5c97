package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"newsarchive/internal/domain"
	"newsarchive/internal/ports"
)

const (
	articlesDir = "articles"
	indexFile   = "corpus.db"
)

// Corpus persists articles as one JSON document each plus a SQLite index
// row, so downstream readers can walk the corpus incrementally without
// loading it whole. Appends are idempotent per URL: the identifier is
// derived from the URL and a repeated append overwrites.
type Corpus struct {
	dir    string
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

var _ ports.CorpusWriter = (*Corpus)(nil)

// ArticleID derives the stable identifier for an article URL.
func ArticleID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// OpenCorpus prepares the output directory and index database.
func OpenCorpus(dir string, logger *slog.Logger) (*Corpus, error) {
	if err := os.MkdirAll(filepath.Join(dir, articlesDir), 0o755); err != nil {
		return nil, &domain.StorageError{Op: "create corpus directory", Err: err}
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, indexFile))
	if err != nil {
		return nil, &domain.StorageError{Op: "open corpus index", Err: err}
	}

	schema := `CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		section TEXT NOT NULL,
		published_at TIMESTAMP NOT NULL,
		path TEXT NOT NULL,
		stored_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Op: "create corpus index schema", Err: err}
	}

	return &Corpus{
		dir:    dir,
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger: logger,
	}, nil
}

// Append writes one article durably. The JSON document is written to a
// temporary file and renamed into place so a partially written article is
// never visible; the index row is upserted afterwards.
func (c *Corpus) Append(ctx context.Context, article *domain.Article) error {
	if article.ID == "" {
		article.ID = ArticleID(article.URL)
	}

	relPath := filepath.Join(articlesDir, article.ID+".json")
	if err := c.writeDocument(relPath, article); err != nil {
		return err
	}

	query := c.sb.
		Insert("articles").
		Columns("id", "url", "title", "section", "published_at", "path", "stored_at").
		Values(article.ID, article.URL, article.Title, article.Section, article.PublishedAt, relPath, time.Now().UTC()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			section = excluded.section,
			published_at = excluded.published_at,
			path = excluded.path,
			stored_at = excluded.stored_at`)

	if _, err := query.RunWith(c.db).ExecContext(ctx); err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("index article %s", article.ID), Err: err}
	}

	c.debug("article stored", "id", article.ID, "url", article.URL)
	return nil
}

// Count returns the number of indexed articles.
func (c *Corpus) Count(ctx context.Context) (int, error) {
	var count int
	err := c.sb.Select("COUNT(*)").From("articles").RunWith(c.db).QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return 0, &domain.StorageError{Op: "count articles", Err: err}
	}
	return count, nil
}

// Close releases the index database handle.
func (c *Corpus) Close() error {
	if err := c.db.Close(); err != nil {
		return &domain.StorageError{Op: "close corpus index", Err: err}
	}
	return nil
}

func (c *Corpus) writeDocument(relPath string, article *domain.Article) error {
	data, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("encode article %s", article.ID), Err: err}
	}

	full := filepath.Join(c.dir, relPath)
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("write article %s", article.ID), Err: err}
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return &domain.StorageError{Op: fmt.Sprintf("commit article %s", article.ID), Err: err}
	}
	return nil
}

func (c *Corpus) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
