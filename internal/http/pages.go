package http

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/auth"
)

// pages renders HTML templates with the data every page needs.
type pages struct {
	sessions *auth.SessionManager
}

// flash queues a message for the next rendered page. Without sessions it is dropped.
func (p pages) flash(c *gin.Context, category, message string) {
	if p.sessions == nil {
		return
	}
	p.sessions.AddFlash(c.Request, category, message)
}

// render executes the named template. Queued flashes, the CSRF field and the
// signed-in identity are added to data.
func (p pages) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if p.sessions != nil {
		data["Flashes"] = p.sessions.PopFlashes(c.Request)
	}
	data["CSRFField"] = template.HTML(auth.CSRFTokenField(c))
	data["AuthEmail"] = auth.GetEmail(c)
	data["AuthName"] = auth.GetName(c)
	data["AuthType"] = string(auth.GetUserType(c))
	c.HTML(status, name, data)
}

// redirect answers a form post with 303 so the browser follows with GET.
func (p pages) redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

// templateFuncs are available in every template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(time.DateOnly)
		},
		"money": func(d decimal.Decimal) string {
			return "$" + d.StringFixed(2)
		},
	}
}

// LoadTemplates parses every *.html file in dir.
func LoadTemplates(dir string) (*template.Template, error) {
	return template.New("").Funcs(templateFuncs()).ParseGlob(dir + "/*.html")
}
