package responses

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/base.html"

// Page is the data every template receives.
type Page struct {
	Title      string
	User       *models.User
	Flashes    []session.Flash
	CSRFToken  string
	Form       map[string]string
	FormErrors map[string]string
	Data       any
}

// ErrorView is the Data of the error page.
type ErrorView struct {
	Status  int
	Message string
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return "$" + d.StringFixed(2)
	},
	"rating": func(avg *float64) string {
		if avg == nil {
			return "No ratings yet"
		}
		return fmt.Sprintf("%.1f / 5", *avg)
	},
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
	"seq": func(from, to int) []int {
		out := make([]int, 0, to-from+1)
		for i := from; i <= to; i++ {
			out = append(out, i)
		}
		return out
	},
	"same": func(a, b any) bool {
		return fmt.Sprint(a) == fmt.Sprint(b)
	},
}

var pages = mustParsePages(templateFS)

func mustParsePages(fsys fs.FS) map[string]*template.Template {
	entries, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry == layoutFile {
			continue
		}
		name := strings.TrimPrefix(entry, "templates/")
		out[name] = template.Must(template.New("base.html").Funcs(funcs).ParseFS(fsys, layoutFile, entry))
	}
	return out
}

// Render executes the named page inside the layout. Output is buffered so a
// template failure never leaves a half-written page.
func Render(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, status int, name string, page Page) {
	tmpl, ok := pages[name]
	if !ok {
		WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "unknown template "+name))
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", page); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "template", name), "template.render_failed", err)
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf(`{"level":"error","msg":"failed to write response","err":"%v"}`, err)
	}
}

// Redirect sends a 302 to target.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusFound)
}

// WriteError renders the error page with the status mapped from the typed
// error code. Untyped errors are treated as internal.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if meta.MessageVisible {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(logCtx, "request.error", err)
		} else {
			logg.Info(logCtx, "request.rejected")
		}
	}

	tmpl := pages["error.html"]
	var buf bytes.Buffer
	page := Page{
		Title: http.StatusText(meta.HTTPStatus),
		Data:  ErrorView{Status: meta.HTTPStatus, Message: msg},
	}
	if tmpl == nil || tmpl.ExecuteTemplate(&buf, "base.html", page) != nil {
		http.Error(w, msg, meta.HTTPStatus)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(meta.HTTPStatus)
	_, _ = buf.WriteTo(w)
}

// WriteJSON is used by the machine-facing endpoints (health checks).
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
