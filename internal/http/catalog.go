package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/catalog"
)

// CatalogController serves the document JSON API.
type CatalogController struct {
	catalog  CatalogService
	topRated int
}

func NewCatalogController(service CatalogService, topRated int) *CatalogController {
	return &CatalogController{catalog: service, topRated: topRated}
}

// Search handles GET /api/documents/search
func (cc *CatalogController) Search(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		respondBadRequest(c, "limit must be a number")
		return
	}

	results, err := cc.catalog.Search(c.Request.Context(), catalog.SearchQuery{
		Title:     c.Query("title"),
		Authors:   c.Query("authors"),
		Publisher: c.Query("publisher"),
		SortBy:    c.Query("sort_by"),
		Order:     c.Query("order"),
		Limit:     limit,
	})
	if err != nil {
		respondServiceError(c, err, "search documents")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// FullTextRequest is the body of POST /api/documents/full-text.
type FullTextRequest struct {
	Keywords string `json:"keywords" form:"keywords"`
}

// FullText handles POST /api/documents/full-text
func (cc *CatalogController) FullText(c *gin.Context) {
	var req FullTextRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	results, err := cc.catalog.FullTextSearch(c.Request.Context(), req.Keywords)
	if err != nil {
		respondServiceError(c, err, "full text search")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// TopRated handles GET /api/documents/top-rated
func (cc *CatalogController) TopRated(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		respondBadRequest(c, "limit must be a number")
		return
	}
	if limit == 0 {
		limit = cc.topRated
	}

	books, genre, err := cc.catalog.TopRatedBooks(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err, "top rated books")
		return
	}

	c.JSON(http.StatusOK, gin.H{"genre": genre, "results": books})
}

// Document handles GET /api/documents/:id
func (cc *CatalogController) Document(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := cc.catalog.Document(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get document")
		return
	}

	c.JSON(http.StatusOK, doc)
}
