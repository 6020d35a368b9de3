// Package catalog answers document searches and reports availability.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrValidation = errors.New("invalid search")
	ErrNoGenres   = errors.New("no genres found in the catalog")
)

// Unlimited is reported as the available copies of electronic documents.
const Unlimited = "Unlimited"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Sort keys accepted by Search.
const (
	SortTitle           = "title"
	SortYear            = "year"
	SortPublisher       = "publisher"
	SortAvailableCopies = "available_copies"
	SortDocumentID      = "document_id"
)

var sortKeys = map[string]bool{
	SortTitle:           true,
	SortYear:            true,
	SortPublisher:       true,
	SortAvailableCopies: true,
	SortDocumentID:      true,
}

// SearchQuery holds the user-facing search form. Empty filters match everything.
type SearchQuery struct {
	Title     string
	Authors   string
	Publisher string
	SortBy    string
	Order     string
	Limit     int
}

// Filter is a validated SearchQuery as handed to the store.
type Filter struct {
	Title     string
	Authors   string
	Publisher string
	SortBy    string
	Desc      bool
	Limit     int
}

// Record is a document row joined with its subtype and loan state.
type Record struct {
	DocumentID     uint
	ISBN           string
	Publisher      string
	Year           int
	Type           entities.DocumentType
	TotalCopies    int
	Title          string
	Authors        string
	Edition        string
	NPages         int
	Rating         float64
	Description    string
	Genres         []string
	CoverImg       string
	MagazineName   string
	JournalName    string
	ArticleTitle   string
	ArticleAuthors string
	ActiveLends    int64
	LastLendDate   *time.Time // most recent open loan, nil when nothing is lent
}

// Store is the catalog persistence. Get methods return an error matching
// ErrNotFound when nothing matches.
type Store interface {
	Search(ctx context.Context, filter Filter) ([]Record, error)
	FullTextSearch(ctx context.Context, keywords string, limit int) ([]Record, error)
	Genres(ctx context.Context) ([]string, error)
	TopRatedByGenre(ctx context.Context, genre string, limit int) ([]Record, error)
	Document(ctx context.Context, documentID uint) (*Record, error)
}

// DocumentSummary is a search hit as rendered to clients.
type DocumentSummary struct {
	DocumentID        uint                  `json:"document_id"`
	ISBN              string                `json:"isbn,omitempty"`
	Publisher         string                `json:"publisher,omitempty"`
	Year              int                   `json:"year,omitempty"`
	Type              entities.DocumentType `json:"type"`
	TotalCopies       int                   `json:"total_copies"`
	Title             string                `json:"title"`
	Authors           string                `json:"authors,omitempty"`
	Edition           string                `json:"edition,omitempty"`
	NPages            int                   `json:"npages,omitempty"`
	Rating            float64               `json:"rating,omitempty"`
	Description       string                `json:"description,omitempty"`
	Genres            []string              `json:"genres,omitempty"`
	CoverImg          string                `json:"coverimg,omitempty"`
	MagazineName      string                `json:"magazine_name,omitempty"`
	JournalName       string                `json:"journal_name,omitempty"`
	AvailableCopies   string                `json:"available_copies"`
	NextAvailableDate string                `json:"next_available_date"`
}

type Service struct {
	store        Store
	policy       ledger.FeePolicy
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// NewService creates a catalog service. Availability dates follow the loan term of policy.
func NewService(store Store, policy ledger.FeePolicy, defaultLimit, maxLimit int) *Service {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(DefaultLimit, maxLimit)
	}
	return &Service{
		store:        store,
		policy:       policy,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Validate turns q into a store filter. An unset limit takes the default;
// limits outside 1..max and unknown sort keys are rejected.
func (s *Service) Validate(q SearchQuery) (Filter, error) {
	f := Filter{
		Title:     strings.TrimSpace(q.Title),
		Authors:   strings.TrimSpace(q.Authors),
		Publisher: strings.TrimSpace(q.Publisher),
		SortBy:    strings.ToLower(strings.TrimSpace(q.SortBy)),
		Limit:     q.Limit,
	}

	if f.SortBy == "" {
		f.SortBy = SortTitle
	}
	if !sortKeys[f.SortBy] {
		return Filter{}, fmt.Errorf("%w: unknown sort key %q", ErrValidation, q.SortBy)
	}

	switch strings.ToLower(strings.TrimSpace(q.Order)) {
	case "", "asc":
	case "desc":
		f.Desc = true
	default:
		return Filter{}, fmt.Errorf("%w: order must be asc or desc", ErrValidation)
	}

	if f.Limit == 0 {
		f.Limit = s.defaultLimit
	}
	if f.Limit < 1 || f.Limit > s.maxLimit {
		return Filter{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, s.maxLimit)
	}
	return f, nil
}

// Search runs a structured search.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]DocumentSummary, error) {
	filter, err := s.Validate(q)
	if err != nil {
		return nil, err
	}

	records, err := s.store.Search(ctx, filter)
	if err != nil {
		log.Printf("Catalog search failed: %v", err)
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	return s.summarize(records), nil
}

// FullTextSearch matches keywords against titles, descriptions, genres, authors and publishers.
// Blank keywords list the catalog up to the maximum limit.
func (s *Service) FullTextSearch(ctx context.Context, keywords string) ([]DocumentSummary, error) {
	records, err := s.store.FullTextSearch(ctx, strings.TrimSpace(keywords), s.maxLimit)
	if err != nil {
		log.Printf("Full text search for %q failed: %v", keywords, err)
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	return s.summarize(records), nil
}

// TopRatedBooks picks a random genre and returns its best rated books.
func (s *Service) TopRatedBooks(ctx context.Context, limit int) ([]DocumentSummary, string, error) {
	if limit <= 0 || limit > s.maxLimit {
		limit = s.defaultLimit
	}

	genres, err := s.store.Genres(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load genres: %w", err)
	}
	if len(genres) == 0 {
		return nil, "", ErrNoGenres
	}

	genre := genres[rand.IntN(len(genres))]
	records, err := s.store.TopRatedByGenre(ctx, genre, limit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load top rated books for %s: %w", genre, err)
	}
	return s.summarize(records), genre, nil
}

// Document returns a single document with its availability.
func (s *Service) Document(ctx context.Context, documentID uint) (*DocumentSummary, error) {
	record, err := s.store.Document(ctx, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, documentID)
		}
		return nil, fmt.Errorf("failed to load document %d: %w", documentID, err)
	}
	summary := s.summarize([]Record{*record})[0]
	return &summary, nil
}

func (s *Service) summarize(records []Record) []DocumentSummary {
	today := ledger.Day(s.now())
	summaries := make([]DocumentSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, DocumentSummary{
			DocumentID:        r.DocumentID,
			ISBN:              r.ISBN,
			Publisher:         r.Publisher,
			Year:              r.Year,
			Type:              r.Type,
			TotalCopies:       r.TotalCopies,
			Title:             displayTitle(r),
			Authors:           firstNonEmpty(r.Authors, r.ArticleAuthors),
			Edition:           r.Edition,
			NPages:            r.NPages,
			Rating:            r.Rating,
			Description:       r.Description,
			Genres:            r.Genres,
			CoverImg:          r.CoverImg,
			MagazineName:      r.MagazineName,
			JournalName:       r.JournalName,
			AvailableCopies:   AvailableCopies(r),
			NextAvailableDate: s.nextAvailable(r, today).Format(time.DateOnly),
		})
	}
	return summaries
}

// AvailableCopies is "Unlimited" for electronic documents and the count of
// copies not currently lent otherwise.
func AvailableCopies(r Record) string {
	if r.Type == entities.DocumentTypeElectronic {
		return Unlimited
	}
	return strconv.FormatInt(max(0, int64(r.TotalCopies)-r.ActiveLends), 10)
}

func (s *Service) nextAvailable(r Record, today time.Time) time.Time {
	if r.LastLendDate == nil {
		return today
	}
	return s.policy.DueDate(*r.LastLendDate)
}

func displayTitle(r Record) string {
	return firstNonEmpty(r.Title, r.MagazineName, r.ArticleTitle)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
