package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LendingController serves the loan and fee JSON API.
type LendingController struct {
	lending LendingService
}

func NewLendingController(lending LendingService) *LendingController {
	return &LendingController{lending: lending}
}

// LoanRequest identifies a loan in borrow, return and pay requests.
type LoanRequest struct {
	DocumentID uint   `json:"document_id" form:"document_id" binding:"required"`
	LendDate   string `json:"lend_date,omitempty" form:"lend_date"` // YYYY-MM-DD, optional
}

// SettleRequest is the body of POST /api/clients/:email/balance/settle.
type SettleRequest struct {
	Amount string `json:"amount" form:"amount" binding:"required"`
}

func bindLoan(c *gin.Context) (LoanRequest, bool) {
	var req LoanRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "document_id is required")
		return req, false
	}
	return req, true
}

// Loans handles GET /api/clients/:email/loans
func (lc *LendingController) Loans(c *gin.Context) {
	email := emailParam(c)

	items, err := lc.lending.FetchBorrowedItems(c.Request.Context(), email)
	if err != nil {
		respondServiceError(c, err, "fetch borrowed items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": email, "items": items})
}

// Borrow handles POST /api/clients/:email/loans
func (lc *LendingController) Borrow(c *gin.Context) {
	req, ok := bindLoan(c)
	if !ok {
		return
	}

	lend, err := lc.lending.Borrow(c.Request.Context(), emailParam(c), req.DocumentID)
	if err != nil {
		respondServiceError(c, err, "borrow document")
		return
	}

	c.JSON(http.StatusCreated, lend)
}

// Return handles POST /api/clients/:email/returns
func (lc *LendingController) Return(c *gin.Context) {
	req, ok := bindLoan(c)
	if !ok {
		return
	}
	lendDate, err := parseDate(req.LendDate)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	receipt, err := lc.lending.ReturnDocument(c.Request.Context(), emailParam(c), req.DocumentID, lendDate)
	if err != nil {
		respondServiceError(c, err, "return document")
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// LendDate handles GET /api/clients/:email/loans/:id/lend-date
func (lc *LendingController) LendDate(c *gin.Context) {
	documentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lendDate, err := lc.lending.GetLendDate(c.Request.Context(), emailParam(c), documentID)
	if err != nil {
		respondServiceError(c, err, "get lend date")
		return
	}

	c.JSON(http.StatusOK, gin.H{"document_id": documentID, "lend_date": lendDate.Format("2006-01-02")})
}

// PayFee handles POST /api/clients/:email/fees/pay
func (lc *LendingController) PayFee(c *gin.Context) {
	req, ok := bindLoan(c)
	if !ok {
		return
	}

	payment, err := lc.lending.PayFee(c.Request.Context(), emailParam(c), req.DocumentID)
	if err != nil {
		respondServiceError(c, err, "pay fee")
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Balance handles GET /api/clients/:email/balance
func (lc *LendingController) Balance(c *gin.Context) {
	email := emailParam(c)
	ctx := c.Request.Context()

	balance, err := lc.lending.Balance(ctx, email)
	if err != nil {
		respondServiceError(c, err, "get balance")
		return
	}
	payments, err := lc.lending.Payments(ctx, email)
	if err != nil {
		respondServiceError(c, err, "list payments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": email, "balance": balance, "payments": payments})
}

// Settle handles POST /api/clients/:email/balance/settle
func (lc *LendingController) Settle(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "amount is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondBadRequest(c, "amount must be a decimal number")
		return
	}

	payment, err := lc.lending.SettleBalance(c.Request.Context(), emailParam(c), amount)
	if err != nil {
		respondServiceError(c, err, "settle balance")
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Overdue handles GET /api/loans/overdue
func (lc *LendingController) Overdue(c *gin.Context) {
	loans, err := lc.lending.OverdueLoans(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list overdue loans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"loans": loans, "count": len(loans)})
}
