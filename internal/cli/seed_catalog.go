package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database/documents"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// SeedCatalogCommand loads documents from a JSON file into the catalog.
type SeedCatalogCommand struct {
	FilePath     string
	DatabasePath string
	Verbose      bool
	DryRun       bool
}

func NewSeedCatalogCommand() *SeedCatalogCommand {
	return &SeedCatalogCommand{}
}

func (cmd *SeedCatalogCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed-catalog", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a JSON array of documents (required)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (default: DATABASE_PATH or "+config.DefaultDatabasePath+")")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every document")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate the file without writing to the database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed-catalog -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Insert or replace catalog documents. Each entry has a document_id, a type\n")
		fmt.Fprintf(os.Stderr, "and one of book, magazine or journal_article:\n\n")
		fmt.Fprintf(os.Stderr, "  [{\"document_id\": 1, \"type\": \"Book\", \"total_copies\": 2,\n")
		fmt.Fprintf(os.Stderr, "    \"book\": {\"title\": \"Dune\", \"authors\": \"Frank Herbert\", \"genres\": [\"Classic\"]}}]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *SeedCatalogCommand) Run() error {
	fmt.Println("Catalog Seed")
	fmt.Println("============")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	file, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	docs, err := ParseSeed(file)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d documents in %s\n", len(docs), cmd.FilePath)

	if cmd.Verbose {
		for i, doc := range docs {
			fmt.Printf("%d. [%d] %s (%s, %d copies)\n", i+1, doc.DocumentID, doc.Title(), doc.Type, doc.TotalCopies)
		}
	}

	if cmd.DryRun {
		fmt.Println("\nDry run complete. Use without -dry-run to import.")
		return nil
	}

	db, err := openDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := documents.NewRepository(db.DB, db.Driver).SaveDocuments(context.Background(), docs)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	fmt.Printf("\nSaved %d documents\n", saved)
	return nil
}

// ParseSeed decodes a JSON array of documents and checks that each one has an
// id, a known type and the matching subtype.
func ParseSeed(r io.Reader) ([]entities.Document, error) {
	var docs []entities.Document
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[uint]bool, len(docs))
	for i := range docs {
		doc := &docs[i]
		if doc.DocumentID == 0 {
			return nil, fmt.Errorf("entry %d: document_id is required", i+1)
		}
		if seen[doc.DocumentID] {
			return nil, fmt.Errorf("entry %d: duplicate document_id %d", i+1, doc.DocumentID)
		}
		seen[doc.DocumentID] = true

		if doc.TotalCopies < 0 {
			return nil, fmt.Errorf("document %d: total_copies must not be negative", doc.DocumentID)
		}
		if err := checkSubtype(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc.DocumentID, err)
		}

		if doc.Book != nil {
			doc.Book.DocumentID = doc.DocumentID
		}
		if doc.Magazine != nil {
			doc.Magazine.DocumentID = doc.DocumentID
		}
		if doc.JournalArticle != nil {
			doc.JournalArticle.DocumentID = doc.DocumentID
		}
	}
	return docs, nil
}

func checkSubtype(doc *entities.Document) error {
	switch doc.Type {
	case entities.DocumentTypeBook, entities.DocumentTypeElectronic:
		if doc.Book == nil || doc.Book.Title == "" {
			return fmt.Errorf("%s needs a book with a title", doc.Type)
		}
	case entities.DocumentTypeMagazine:
		if doc.Magazine == nil || doc.Magazine.Name == "" {
			return fmt.Errorf("magazine needs a name")
		}
	case entities.DocumentTypeJournalArticle:
		if doc.JournalArticle == nil || doc.JournalArticle.Title == "" {
			return fmt.Errorf("journal article needs a title")
		}
	default:
		return fmt.Errorf("unknown document type %q", doc.Type)
	}
	return nil
}
