// Package documents provides catalog queries over documents and their subtypes.
//
// This package implements the catalog.Store interface defined in internal/catalog/catalog.go.
// Queries are built with goqu and executed through gorm, so the same statements
// run on SQLite and PostgreSQL. Full-text search uses to_tsvector on PostgreSQL
// and keyword LIKE matching on SQLite.
//
//	var _ catalog.Store = (*Repository)(nil)
package documents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	tableDocuments       = "documents"
	tableBooks           = "books"
	tableMagazines       = "magazines"
	tableJournalArticles = "journal_articles"
)

const (
	activeLendsSQL = `(SELECT COUNT(*) FROM "lends" AS "l" WHERE "l"."document_id" = "d"."document_id")`
	// electronic documents sort after every physical document
	availableRankSQL    = `CASE WHEN "d"."type" = 'Electronic Document' THEN 2147483647 ELSE "d"."total_copies" - ` + activeLendsSQL + ` END`
	searchableTextSQL   = `COALESCE("b"."title", '') || ' ' || COALESCE("b"."description", '') || ' ' || COALESCE("b"."genres", '') || ' ' || COALESCE("b"."authors", '') || ' ' || COALESCE("d"."publisher", '')`
	fullTextPostgresSQL = `to_tsvector('english', ` + searchableTextSQL + `) @@ plainto_tsquery('english', ?)`
)

// row mirrors the select list of baseQuery.
type row struct {
	DocumentID     uint    `gorm:"column:document_id"`
	ISBN           string  `gorm:"column:isbn"`
	Publisher      string  `gorm:"column:publisher"`
	Year           int     `gorm:"column:year"`
	Type           string  `gorm:"column:type"`
	TotalCopies    int     `gorm:"column:total_copies"`
	Title          string  `gorm:"column:title"`
	Authors        string  `gorm:"column:authors"`
	Edition        string  `gorm:"column:edition"`
	NPages         int     `gorm:"column:npages"`
	Rating         float64 `gorm:"column:rating"`
	Description    string  `gorm:"column:description"`
	GenresJSON     string  `gorm:"column:genres"`
	CoverImg       string  `gorm:"column:coverimg"`
	MagazineName   string  `gorm:"column:magazine_name"`
	JournalName    string  `gorm:"column:journal_name"`
	ArticleTitle   string  `gorm:"column:article_title"`
	ArticleAuthors string  `gorm:"column:article_authors"`
	ActiveLends    int64   `gorm:"column:active_lends"`
}

// Repository handles catalog reads.
type Repository struct {
	db      *gorm.DB
	driver  string
	dialect goqu.DialectWrapper
}

// NewRepository creates a catalog repository for the given database driver.
func NewRepository(db *gorm.DB, driver string) *Repository {
	return &Repository{
		db:      db,
		driver:  driver,
		dialect: goqu.Dialect("default"),
	}
}

func (r *Repository) baseQuery() *goqu.SelectDataset {
	return r.dialect.
		From(goqu.T(tableDocuments).As("d")).
		Prepared(true).
		LeftJoin(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.document_id").Eq(goqu.I("d.document_id")))).
		LeftJoin(goqu.T(tableMagazines).As("m"), goqu.On(goqu.I("m.document_id").Eq(goqu.I("d.document_id")))).
		LeftJoin(goqu.T(tableJournalArticles).As("j"), goqu.On(goqu.I("j.document_id").Eq(goqu.I("d.document_id")))).
		Select(
			goqu.I("d.document_id"),
			goqu.COALESCE(goqu.I("d.isbn"), "").As("isbn"),
			goqu.COALESCE(goqu.I("d.publisher"), "").As("publisher"),
			goqu.COALESCE(goqu.I("d.year"), 0).As("year"),
			goqu.I("d.type"),
			goqu.I("d.total_copies"),
			goqu.COALESCE(goqu.I("b.title"), goqu.I("m.name"), goqu.I("j.title"), "").As("title"),
			goqu.COALESCE(goqu.I("b.authors"), "").As("authors"),
			goqu.COALESCE(goqu.I("b.edition"), "").As("edition"),
			goqu.COALESCE(goqu.I("b.npages"), 0).As("npages"),
			goqu.COALESCE(goqu.I("b.rating"), 0.0).As("rating"),
			goqu.COALESCE(goqu.I("b.description"), "").As("description"),
			goqu.COALESCE(goqu.I("b.genres"), "").As("genres"),
			goqu.COALESCE(goqu.I("b.coverimg"), "").As("coverimg"),
			goqu.COALESCE(goqu.I("m.name"), "").As("magazine_name"),
			goqu.COALESCE(goqu.I("j.name"), "").As("journal_name"),
			goqu.COALESCE(goqu.I("j.title"), "").As("article_title"),
			goqu.COALESCE(goqu.I("j.authors"), "").As("article_authors"),
			goqu.L(activeLendsSQL).As("active_lends"),
		)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsFold matches term as a literal, case-insensitive substring of expr.
func containsFold(expr exp.Expression, term string) exp.Expression {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	return goqu.L(`LOWER(?) LIKE ? ESCAPE '\'`, expr, pattern)
}

// Search applies the ANDed substring filters, sort and limit of filter.
func (r *Repository) Search(ctx context.Context, filter catalog.Filter) ([]catalog.Record, error) {
	where := make([]exp.Expression, 0, 3)
	if filter.Title != "" {
		where = append(where, goqu.Or(
			containsFold(goqu.I("b.title"), filter.Title),
			containsFold(goqu.I("m.name"), filter.Title),
			containsFold(goqu.I("j.title"), filter.Title),
		))
	}
	if filter.Authors != "" {
		where = append(where, goqu.Or(
			containsFold(goqu.I("b.authors"), filter.Authors),
			containsFold(goqu.I("j.authors"), filter.Authors),
		))
	}
	if filter.Publisher != "" {
		where = append(where, containsFold(goqu.I("d.publisher"), filter.Publisher))
	}

	query := r.baseQuery().Where(where...)
	query = query.Order(sortExpression(filter.SortBy, filter.Desc), goqu.I("d.document_id").Asc())
	if filter.Limit > 0 {
		query = query.Limit(uint(filter.Limit))
	}
	return r.fetch(ctx, query)
}

func sortExpression(key string, desc bool) exp.OrderedExpression {
	var expr exp.Orderable
	switch key {
	case catalog.SortYear:
		expr = goqu.I("d.year")
	case catalog.SortPublisher:
		expr = goqu.I("d.publisher")
	case catalog.SortAvailableCopies:
		expr = goqu.L(availableRankSQL)
	case catalog.SortDocumentID:
		expr = goqu.I("d.document_id")
	default:
		expr = goqu.C("title")
	}
	if desc {
		return expr.Desc()
	}
	return expr.Asc()
}

// FullTextSearch matches keywords against the searchable text of each document.
func (r *Repository) FullTextSearch(ctx context.Context, keywords string, limit int) ([]catalog.Record, error) {
	query := r.baseQuery()

	if keywords != "" {
		if r.driver == config.DriverPostgres {
			query = query.Where(goqu.L(fullTextPostgresSQL, keywords))
		} else {
			terms := strings.Fields(strings.ToLower(keywords))
			where := make([]exp.Expression, 0, len(terms))
			for _, term := range terms {
				where = append(where, containsFold(goqu.L(searchableTextSQL), term))
			}
			query = query.Where(where...)
		}
	}

	query = query.Order(goqu.I("d.document_id").Asc())
	if limit > 0 {
		query = query.Limit(uint(limit))
	}
	return r.fetch(ctx, query)
}

// Genres returns the distinct genres over all books, sorted.
func (r *Repository) Genres(ctx context.Context) ([]string, error) {
	var books []entities.Book
	if err := r.db.WithContext(ctx).Select("document_id", "genres").Find(&books).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	genres := make([]string, 0)
	for _, book := range books {
		for _, genre := range book.Genres {
			genre = strings.TrimSpace(genre)
			if genre == "" || seen[genre] {
				continue
			}
			seen[genre] = true
			genres = append(genres, genre)
		}
	}
	sort.Strings(genres)
	return genres, nil
}

// TopRatedByGenre returns the best rated books tagged with genre.
func (r *Repository) TopRatedByGenre(ctx context.Context, genre string, limit int) ([]catalog.Record, error) {
	encoded, err := json.Marshal(genre)
	if err != nil {
		return nil, fmt.Errorf("failed to encode genre: %w", err)
	}

	query := r.baseQuery().
		Where(
			goqu.I("b.document_id").IsNotNull(),
			goqu.I("b.genres").Like("%"+string(encoded)+"%"),
		).
		Order(goqu.I("b.rating").Desc(), goqu.I("d.document_id").Asc())
	if limit > 0 {
		query = query.Limit(uint(limit))
	}
	return r.fetch(ctx, query)
}

func (r *Repository) Document(ctx context.Context, documentID uint) (*catalog.Record, error) {
	query := r.baseQuery().Where(goqu.I("d.document_id").Eq(documentID))
	records, err := r.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, catalog.ErrNotFound
	}
	return &records[0], nil
}

func (r *Repository) fetch(ctx context.Context, query *goqu.SelectDataset) ([]catalog.Record, error) {
	sql, args, err := query.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog query: %w", err)
	}

	var rows []row
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]catalog.Record, 0, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, rw := range rows {
		record, err := rw.record()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
		ids = append(ids, rw.DocumentID)
	}

	lastLend, err := r.lastLendDates(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if date, ok := lastLend[records[i].DocumentID]; ok {
			records[i].LastLendDate = &date
		}
	}
	return records, nil
}

// lastLendDates returns the most recent open lend date per document.
func (r *Repository) lastLendDates(ctx context.Context, ids []uint) (map[uint]time.Time, error) {
	result := make(map[uint]time.Time)
	if len(ids) == 0 {
		return result, nil
	}

	var lends []entities.Lend
	err := r.db.WithContext(ctx).
		Select("document_id", "lend_date").
		Where("document_id IN ?", ids).
		Find(&lends).Error
	if err != nil {
		return nil, err
	}

	for _, lend := range lends {
		if current, ok := result[lend.DocumentID]; !ok || lend.LendDate.After(current) {
			result[lend.DocumentID] = lend.LendDate
		}
	}
	return result, nil
}

func (rw row) record() (catalog.Record, error) {
	var genres []string
	if rw.GenresJSON != "" && rw.GenresJSON != "null" {
		if err := json.UnmarshalFromString(rw.GenresJSON, &genres); err != nil {
			return catalog.Record{}, fmt.Errorf("document %d has malformed genres: %w", rw.DocumentID, err)
		}
	}

	return catalog.Record{
		DocumentID:     rw.DocumentID,
		ISBN:           rw.ISBN,
		Publisher:      rw.Publisher,
		Year:           rw.Year,
		Type:           entities.DocumentType(rw.Type),
		TotalCopies:    rw.TotalCopies,
		Title:          rw.Title,
		Authors:        rw.Authors,
		Edition:        rw.Edition,
		NPages:         rw.NPages,
		Rating:         rw.Rating,
		Description:    rw.Description,
		Genres:         genres,
		CoverImg:       rw.CoverImg,
		MagazineName:   rw.MagazineName,
		JournalName:    rw.JournalName,
		ArticleTitle:   rw.ArticleTitle,
		ArticleAuthors: rw.ArticleAuthors,
		ActiveLends:    rw.ActiveLends,
	}, nil
}

// SaveDocuments inserts docs, replacing any existing document with the same id
// together with its subtype rows.
func (r *Repository) SaveDocuments(ctx context.Context, docs []entities.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Session(&gorm.Session{FullSaveAssociations: true}).Clauses(clause.OnConflict{UpdateAll: true})
		for i := range docs {
			if err := upsert.Create(&docs[i]).Error; err != nil {
				return fmt.Errorf("save document %d: %w", docs[i].DocumentID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
