package entities

import "time"

type DocumentType string

const (
	DocumentTypeBook           DocumentType = "Book"
	DocumentTypeMagazine       DocumentType = "Magazine"
	DocumentTypeJournalArticle DocumentType = "Journal Article"
	DocumentTypeElectronic     DocumentType = "Electronic Document" // unlimited availability
)

// Document is a catalog entry. Book, Magazine and JournalArticle are optional
// one-to-one subtypes sharing its DocumentID.
type Document struct {
	DocumentID     uint            `gorm:"column:document_id;primaryKey" json:"document_id"`
	ISBN           string          `gorm:"column:isbn;index;size:20" json:"isbn,omitempty"`
	Publisher      string          `gorm:"index;size:256" json:"publisher,omitempty"`
	Year           int             `json:"year,omitempty"`
	Type           DocumentType    `gorm:"index;size:32" json:"type"`
	TotalCopies    int             `gorm:"not null;default:0" json:"total_copies"`
	Book           *Book           `gorm:"foreignKey:DocumentID;references:DocumentID" json:"book,omitempty"`
	Magazine       *Magazine       `gorm:"foreignKey:DocumentID;references:DocumentID" json:"magazine,omitempty"`
	JournalArticle *JournalArticle `gorm:"foreignKey:DocumentID;references:DocumentID" json:"journal_article,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (d Document) IsElectronic() bool {
	return d.Type == DocumentTypeElectronic
}

// Title returns the display title of whichever subtype is present.
func (d Document) Title() string {
	switch {
	case d.Book != nil && d.Book.Title != "":
		return d.Book.Title
	case d.Magazine != nil && d.Magazine.Name != "":
		return d.Magazine.Name
	case d.JournalArticle != nil && d.JournalArticle.Title != "":
		return d.JournalArticle.Title
	}
	return ""
}

type Book struct {
	DocumentID  uint     `gorm:"column:document_id;primaryKey;autoIncrement:false" json:"document_id"`
	Title       string   `gorm:"index;size:512" json:"title"`
	Authors     string   `gorm:"size:512" json:"authors,omitempty"`
	Edition     string   `gorm:"size:64" json:"edition,omitempty"`
	NPages      int      `gorm:"column:npages" json:"npages,omitempty"`
	Rating      float64  `gorm:"index" json:"rating,omitempty"`
	Description string   `gorm:"type:text" json:"description,omitempty"`
	Genres      []string `gorm:"serializer:json;type:text" json:"genres,omitempty"`
	CoverImg    string   `gorm:"column:coverimg;size:2048" json:"coverimg,omitempty"`
}

type Magazine struct {
	DocumentID uint   `gorm:"column:document_id;primaryKey;autoIncrement:false" json:"document_id"`
	Name       string `gorm:"size:256" json:"name"`
}

type JournalArticle struct {
	DocumentID uint   `gorm:"column:document_id;primaryKey;autoIncrement:false" json:"document_id"`
	Name       string `gorm:"size:256" json:"name"` // journal name
	Title      string `gorm:"size:512" json:"title"`
	Authors    string `gorm:"size:512" json:"authors,omitempty"`
}
