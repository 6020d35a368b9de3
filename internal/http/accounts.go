package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// AccountsController handles sign-up, sign-in and logout.
type AccountsController struct {
	pages
	accounts    AccountService
	rateLimiter *auth.RateLimiter
}

func NewAccountsController(service AccountService, sessions *auth.SessionManager, rateLimiter *auth.RateLimiter) *AccountsController {
	return &AccountsController{
		pages:       pages{sessions: sessions},
		accounts:    service,
		rateLimiter: rateLimiter,
	}
}

func (ac *AccountsController) SignupPage(c *gin.Context) {
	ac.render(c, http.StatusOK, "signup", gin.H{"Name": "", "Email": "", "Address": ""})
}

// Signup registers a client and signs them in.
func (ac *AccountsController) Signup(c *gin.Context) {
	reg := accounts.Registration{
		Name:       c.PostForm("name"),
		Email:      c.PostForm("email"),
		Password:   c.PostForm("password"),
		Address:    c.PostForm("address"),
		CreditCard: c.PostForm("credit_card_number"),
	}

	client, err := ac.accounts.Register(c.Request.Context(), reg)
	if err != nil {
		status, _ := errorStatus(err)
		switch {
		case errors.Is(err, accounts.ErrClientExists):
			ac.flash(c, auth.FlashDanger, "An account with this email already exists.")
		case status < http.StatusInternalServerError:
			ac.flash(c, auth.FlashDanger, err.Error())
		default:
			log.Printf("Signup failed: %v", err)
			ac.flash(c, auth.FlashDanger, "Signup failed, please try again.")
		}
		ac.render(c, status, "signup", gin.H{"Name": reg.Name, "Email": reg.Email, "Address": reg.Address})
		return
	}

	if ac.sessions != nil {
		if err := ac.sessions.CreateSession(c.Request, client.Email, client.Name, entities.UserTypeClient); err != nil {
			log.Printf("Failed to create session for %s: %v", client.Email, err)
		}
	}
	ac.flash(c, auth.FlashSuccess, "Signup successful!")
	ac.redirect(c, "/client_home")
}

func parseUserType(c *gin.Context) (entities.UserType, bool) {
	switch userType := entities.UserType(strings.ToLower(c.Param("user_type"))); userType {
	case entities.UserTypeClient, entities.UserTypeLibrarian:
		return userType, true
	default:
		return "", false
	}
}

func (ac *AccountsController) SigninPage(c *gin.Context) {
	userType, ok := parseUserType(c)
	if !ok {
		c.String(http.StatusNotFound, "Unknown user type")
		return
	}
	ac.render(c, http.StatusOK, "signin", gin.H{
		"UserType": string(userType),
		"Email":    "",
		"Next":     auth.SafeRedirectPath(c.Query("next"), ""),
	})
}

// Signin verifies the credentials, starts a session and redirects to next
// when it is a local path.
func (ac *AccountsController) Signin(c *gin.Context) {
	userType, ok := parseUserType(c)
	if !ok {
		c.String(http.StatusNotFound, "Unknown user type")
		return
	}

	email := c.PostForm("email")
	next := auth.SafeRedirectPath(c.PostForm("next"), "")

	identity, err := ac.accounts.Login(c.Request.Context(), email, c.PostForm("password"), userType)
	if err != nil {
		status, _ := errorStatus(err)
		if status == http.StatusUnauthorized {
			if ac.rateLimiter != nil {
				ac.rateLimiter.RecordFailure(c.ClientIP(), userType, email)
			}
			ac.flash(c, auth.FlashDanger, "Invalid email or password.")
		} else {
			log.Printf("Signin failed: %v", err)
			ac.flash(c, auth.FlashDanger, "Sign in failed, please try again.")
		}
		ac.render(c, status, "signin", gin.H{"UserType": string(userType), "Email": email, "Next": next})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(c.ClientIP(), userType, email)
	}
	if ac.sessions != nil {
		if err := ac.sessions.CreateSession(c.Request, identity.Email, identity.Name, identity.UserType); err != nil {
			respondInternalError(c, err, "create session")
			return
		}
	}

	ac.flash(c, auth.FlashSuccess, "Login successful!")
	ac.redirect(c, auth.SafeRedirectPath(next, homeFor(identity.UserType)))
}

func homeFor(userType entities.UserType) string {
	if userType == entities.UserTypeLibrarian {
		return "/main_menu"
	}
	return "/client_home"
}

func (ac *AccountsController) Logout(c *gin.Context) {
	if ac.sessions != nil {
		if err := ac.sessions.DestroySession(c.Request); err != nil {
			log.Printf("Failed to destroy session: %v", err)
		}
	}
	ac.redirect(c, "/")
}
