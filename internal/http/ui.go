package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

// UIController serves the catalog and lending pages.
type UIController struct {
	pages
	catalog  CatalogService
	lending  LendingService
	topRated int
}

func NewUIController(catalogService CatalogService, lending LendingService, sessions *auth.SessionManager, topRated int) *UIController {
	return &UIController{
		pages:    pages{sessions: sessions},
		catalog:  catalogService,
		lending:  lending,
		topRated: topRated,
	}
}

func (ui *UIController) Index(c *gin.Context) {
	ui.render(c, http.StatusOK, "index", nil)
}

// topRatedBooks loads the top rated panel. An empty catalog shows no panel.
func (ui *UIController) topRatedBooks(c *gin.Context) ([]catalog.DocumentSummary, string) {
	books, genre, err := ui.catalog.TopRatedBooks(c.Request.Context(), ui.topRated)
	if err != nil {
		if !errors.Is(err, catalog.ErrNoGenres) {
			log.Printf("Failed to load top rated books: %v", err)
		}
		return nil, ""
	}
	return books, genre
}

// MainMenu lists every document next to the top rated books.
func (ui *UIController) MainMenu(c *gin.Context) {
	documents, err := ui.catalog.FullTextSearch(c.Request.Context(), "")
	if err != nil {
		log.Printf("Failed to list documents: %v", err)
		ui.flash(c, auth.FlashDanger, "Failed to load the catalog.")
	}

	topBooks, genre := ui.topRatedBooks(c)
	ui.render(c, http.StatusOK, "menu", gin.H{
		"Documents": documents,
		"Search":    false,
		"Keywords":  "",
		"TopBooks":  topBooks,
		"Genre":     genre,
	})
}

// MainMenuSearch runs a full-text search. Script requests get JSON back.
func (ui *UIController) MainMenuSearch(c *gin.Context) {
	keywords := c.PostForm("keywords")
	results, err := ui.catalog.FullTextSearch(c.Request.Context(), keywords)

	if isXHRRequest(c) {
		if err != nil {
			respondServiceError(c, err, "full text search")
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
		return
	}

	if err != nil {
		log.Printf("Full text search failed: %v", err)
		ui.flash(c, auth.FlashDanger, "Search failed, please try again.")
		ui.redirect(c, "/main_menu")
		return
	}
	if len(results) == 0 {
		ui.flash(c, auth.FlashWarning, "No results found for your search.")
		ui.redirect(c, "/main_menu")
		return
	}

	ui.render(c, http.StatusOK, "menu", gin.H{
		"Documents": results,
		"Search":    true,
		"Keywords":  keywords,
	})
}

func (ui *UIController) BookDetail(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		ui.flash(c, auth.FlashWarning, "Book not found.")
		ui.redirect(c, "/main_menu")
		return
	}

	book, err := ui.catalog.Document(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			log.Printf("Failed to load document %d: %v", id, err)
		}
		ui.flash(c, auth.FlashWarning, "Book not found.")
		ui.redirect(c, "/main_menu")
		return
	}

	ui.render(c, http.StatusOK, "book_detail", gin.H{"Book": book})
}

func (ui *UIController) SearchPage(c *gin.Context) {
	ui.render(c, http.StatusOK, "search", gin.H{"Query": catalog.SearchQuery{SortBy: catalog.SortTitle, Order: "asc"}})
}

// Search runs the structured search form.
func (ui *UIController) Search(c *gin.Context) {
	query := catalog.SearchQuery{
		Title:     c.PostForm("title"),
		Authors:   c.PostForm("authors"),
		Publisher: c.PostForm("publisher"),
		SortBy:    c.DefaultPostForm("sort_by", catalog.SortTitle),
		Order:     c.DefaultPostForm("order", "asc"),
	}

	limit, err := parseOptionalInt(c.PostForm("limit"))
	if err != nil {
		ui.flash(c, auth.FlashDanger, "Limit must be a number.")
		ui.render(c, http.StatusBadRequest, "search", gin.H{"Query": query})
		return
	}
	query.Limit = limit

	results, err := ui.catalog.Search(c.Request.Context(), query)
	if err != nil {
		status, _ := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Search failed: %v", err)
			ui.flash(c, auth.FlashDanger, "Search failed, please try again.")
		} else {
			ui.flash(c, auth.FlashDanger, err.Error())
		}
		ui.render(c, status, "search", gin.H{"Query": query})
		return
	}

	ui.render(c, http.StatusOK, "search_results", gin.H{"Results": results, "Query": query})
}

func (ui *UIController) ClientHome(c *gin.Context) {
	topBooks, genre := ui.topRatedBooks(c)
	ui.render(c, http.StatusOK, "client_home", gin.H{
		"Email":    auth.GetEmail(c),
		"Name":     auth.GetName(c),
		"TopBooks": topBooks,
		"Genre":    genre,
	})
}

// ClientReturn lists the loans of a client with the fee each would cost today.
func (ui *UIController) ClientReturn(c *gin.Context) {
	email := emailParam(c)

	items, err := ui.lending.FetchBorrowedItems(c.Request.Context(), email)
	if err != nil {
		log.Printf("Failed to fetch borrowed items for %s: %v", email, err)
		ui.flash(c, auth.FlashDanger, "Failed to fetch borrowed items: "+err.Error())
		items = nil
	}

	ui.render(c, http.StatusOK, "client_return", gin.H{
		"Email":         email,
		"BorrowedItems": items,
	})
}

// ReturnDocument handles the return form and reports the late fee charged.
func (ui *UIController) ReturnDocument(c *gin.Context) {
	email := emailParam(c)
	back := "/client_return/" + url.PathEscape(email)

	documentID, err := parseID(c.PostForm("document_id"))
	if err != nil {
		ui.flash(c, auth.FlashDanger, "Invalid document id.")
		ui.redirect(c, back)
		return
	}
	lendDate, err := parseDate(c.PostForm("lend_date"))
	if err != nil {
		ui.flash(c, auth.FlashDanger, "Invalid lend date: "+err.Error())
		ui.redirect(c, back)
		return
	}

	receipt, err := ui.lending.ReturnDocument(c.Request.Context(), email, documentID, lendDate)
	if err != nil {
		ui.flash(c, auth.FlashDanger, returnFailure(err))
		ui.redirect(c, back)
		return
	}

	ui.flash(c, auth.FlashSuccess, receipt.Message)
	ui.redirect(c, back)
}

func returnFailure(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return "Return failed: no matching loan was found."
	case errors.Is(err, ledger.ErrValidation):
		return "Return failed: " + err.Error()
	case errors.Is(err, ledger.ErrConflict):
		return "Return failed: the fees on this loan changed, please review them and try again."
	default:
		log.Printf("Return failed: %v", err)
		return "Return failed, please try again."
	}
}

// PayFeePage shows the fees due on each loan and the account balance.
func (ui *UIController) PayFeePage(c *gin.Context) {
	email := emailParam(c)
	ctx := c.Request.Context()

	items, err := ui.lending.FetchBorrowedItems(ctx, email)
	if err != nil {
		log.Printf("Failed to fetch borrowed items for %s: %v", email, err)
		ui.flash(c, auth.FlashDanger, "Failed to fetch borrowed items: "+err.Error())
	}

	data := gin.H{"Email": email, "BorrowedItems": items}
	if balance, err := ui.lending.Balance(ctx, email); err == nil {
		data["Balance"] = balance
	}
	if payments, err := ui.lending.Payments(ctx, email); err == nil {
		data["Payments"] = payments
	}

	ui.render(c, http.StatusOK, "pay_fee", data)
}

// PayFee pays the outstanding overdue weeks of one loan.
func (ui *UIController) PayFee(c *gin.Context) {
	email := emailParam(c)
	back := "/pay_fee/" + url.PathEscape(email)

	documentID, err := parseID(c.PostForm("document_id"))
	if err != nil {
		ui.flash(c, auth.FlashDanger, "Invalid document id.")
		ui.redirect(c, back)
		return
	}

	payment, err := ui.lending.PayFee(c.Request.Context(), email, documentID)
	switch {
	case err != nil:
		status, _ := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Fee payment failed for %s: %v", email, err)
			ui.flash(c, auth.FlashDanger, "Payment failed, please try again.")
		} else {
			ui.flash(c, auth.FlashDanger, "No overdue fees were found: "+err.Error())
		}
	case payment.Amount.IsZero():
		ui.flash(c, auth.FlashWarning, fmt.Sprintf("No overdue fees are due on document %d.", documentID))
	default:
		ui.flash(c, auth.FlashSuccess, "Payment successful! Total fee paid: $"+payment.Amount.StringFixed(2))
	}
	ui.redirect(c, back)
}
