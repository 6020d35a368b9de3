package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/clients"
	"github.com/mrlokans/librarydesk/internal/database/documents"
	"github.com/mrlokans/librarydesk/internal/database/lending"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

const (
	readerEmail    = "reader@example.com"
	readerPassword = "correct-horse"
	librarianEmail = "librarian@example.com"
)

// appNow is the fixed clock of the test app. A loan made 41 days earlier,
// on 2024-02-03, is one week overdue.
var appNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type fakeScanRunner struct {
	triggers []string
}

func (f *fakeScanRunner) RunNow(trigger string) (string, error) {
	f.triggers = append(f.triggers, trigger)
	return "task-1", nil
}

type fakeTaskStatus struct{}

func (fakeTaskStatus) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	if taskID == "task-1" {
		return backlite.TaskStatusPending, nil
	}
	return backlite.TaskStatusNotFound, nil
}

type testApp struct {
	t      *testing.T
	db     *database.Database
	router *gin.Engine
	scans  *fakeScanRunner
}

func setupApp(t *testing.T, mode config.AuthMode) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	policy := ledger.DefaultPolicy()
	l := ledger.New(lending.NewRepository(db.DB), policy)
	l.SetClock(func() time.Time { return appNow })

	cat := catalog.NewService(documents.NewRepository(db.DB, config.DriverSQLite), policy, catalog.DefaultLimit, catalog.MaxLimit)
	cat.SetClock(func() time.Time { return appNow })

	acc := accounts.NewService(clients.NewRepository(db.DB), bcrypt.MinCost)

	authCfg := config.Auth{Mode: mode, SecureCookies: false, SessionLifetime: time.Hour}
	sessions, err := auth.NewSessionManager(nil, config.DriverSQLite, authCfg)
	require.NoError(t, err)

	scans := &fakeScanRunner{}
	router := NewRouter(RouterConfig{
		Database:       db,
		Lending:        l,
		Catalog:        cat,
		Accounts:       acc,
		SessionManager: sessions,
		AuthConfig:     authCfg,
		TemplatesPath:  "../../templates",
		TopRatedLimit:  5,
		ScanRunner:     scans,
		TaskStatus:     fakeTaskStatus{},
		Version:        "test",
	})

	app := &testApp{t: t, db: db, router: router, scans: scans}
	app.seed(acc)
	return app
}

func (a *testApp) seed(acc *accounts.Service) {
	ctx := context.Background()

	_, err := acc.Register(ctx, accounts.Registration{
		Name:       "Reader",
		Email:      readerEmail,
		Password:   readerPassword,
		Address:    "1 Library Way",
		CreditCard: "4111 1111 1111 1111",
	})
	require.NoError(a.t, err)
	_, err = acc.RegisterLibrarian(ctx, "Librarian", librarianEmail, readerPassword)
	require.NoError(a.t, err)

	docs := []entities.Document{
		{
			DocumentID: 1, Publisher: "Penguin", Year: 1813, Type: entities.DocumentTypeBook, TotalCopies: 2,
			Book: &entities.Book{Title: "Pride and Prejudice", Authors: "Jane Austen", Rating: 4.5, Genres: []string{"Classic"}},
		},
		{
			DocumentID: 2, Publisher: "Ace", Year: 1965, Type: entities.DocumentTypeBook, TotalCopies: 1,
			Book: &entities.Book{Title: "Dune", Authors: "Frank Herbert", Rating: 4.7, Genres: []string{"Classic"}},
		},
		{
			DocumentID: 3, Publisher: "Addison", Type: entities.DocumentTypeElectronic,
			Book: &entities.Book{Title: "The Go Programming Language", Authors: "Donovan"},
		},
	}
	for i := range docs {
		require.NoError(a.t, a.db.DB.Create(&docs[i]).Error)
	}

	a.lend(readerEmail, 1, 41)
}

func (a *testApp) lend(email string, documentID uint, daysAgo int) {
	require.NoError(a.t, a.db.DB.Create(&entities.Lend{
		Email:      email,
		DocumentID: documentID,
		LendDate:   ledger.Day(appNow).AddDate(0, 0, -daysAgo),
	}).Error)
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (a *testApp) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(formRequest(path, form), cookies...)
}

func (a *testApp) postJSON(path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, cookies...)
}

// signIn signs in and returns the session cookie.
func (a *testApp) signIn(userType, email, password string) *http.Cookie {
	a.t.Helper()

	w := a.postForm("/signin/"+userType, url.Values{"email": {email}, "password": {password}})
	require.Equal(a.t, http.StatusSeeOther, w.Code, w.Body.String())
	return sessionCookie(a.t, w)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("response has no session cookie")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}
