package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/config"
)

type taskBody struct {
	ID      string `json:"id"`
	TaskID  string `json:"task_id"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Success bool   `json:"success"`
}

func TestTasksController_RunOverdueScan(t *testing.T) {
	app := setupApp(t, config.AuthModeNone)

	w := app.postJSON("/api/tasks/overdue-scan/run", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	body := decode[taskBody](t, w)
	assert.True(t, body.Success)
	assert.Equal(t, "task-1", body.TaskID)
	assert.Equal(t, "overdue_scan", body.Type)
	assert.Equal(t, []string{"api"}, app.scans.triggers)
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	app := setupApp(t, config.AuthModeNone)

	body := decode[taskBody](t, app.get("/api/tasks/task-1"))
	assert.Equal(t, "task-1", body.ID)
	assert.Equal(t, "pending", body.Status)

	body = decode[taskBody](t, app.get("/api/tasks/other"))
	assert.Equal(t, "not_found", body.Status)
}

func TestTasksController_LibrarianOnly(t *testing.T) {
	app := setupApp(t, config.AuthModeLocal)

	assert.Equal(t, http.StatusUnauthorized, app.postJSON("/api/tasks/overdue-scan/run", "").Code)

	client := app.signIn("client", readerEmail, readerPassword)
	assert.Equal(t, http.StatusForbidden, app.get("/api/tasks/task-1", client).Code)

	librarian := app.signIn("librarian", librarianEmail, readerPassword)
	assert.Equal(t, http.StatusAccepted, app.postJSON("/api/tasks/overdue-scan/run", "", librarian).Code)
	assert.Equal(t, []string{"api"}, app.scans.triggers)
}
