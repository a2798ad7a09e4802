package main

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"golang.org/x/crypto/bcrypt"
)

// --- Session helpers ---

func newStore(secret string) *sessions.CookieStore {
	s := sessions.NewCookieStore([]byte(secret))
	s.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
	}
	return s
}

func (app *App) currentUser(r *http.Request) *User {
	session, _ := app.store.Get(r, "session")
	v, ok := session.Values["user_id"]
	if !ok {
		return nil
	}
	id, ok := v.(uint)
	if !ok {
		return nil
	}
	return getUserByID(app.db, id)
}

func (app *App) loginUser(w http.ResponseWriter, r *http.Request, u *User) {
	session, _ := app.store.Get(r, "session")
	session.Values["user_id"] = u.ID
	session.Save(r, w)
}

func (app *App) logoutUser(w http.ResponseWriter, r *http.Request) {
	session, _ := app.store.Get(r, "session")
	delete(session.Values, "user_id")
	session.Save(r, w)
}

func (app *App) addFlash(w http.ResponseWriter, r *http.Request, message string) {
	session, _ := app.store.Get(r, "session")
	session.AddFlash(message)
	session.Save(r, w)
}

func (app *App) flashes(w http.ResponseWriter, r *http.Request) []string {
	session, _ := app.store.Get(r, "session")
	raw := session.Flashes()
	session.Save(r, w)
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	return msgs
}

// --- Password helpers ---

func hashPassword(password string) string {
	bytes, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes)
}

func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// --- Avatar helpers ---

var errBadAvatarType = errors.New("disallowed avatar file type")

// saveAvatar stores an uploaded avatar as "<userID>.<ext>" in the upload
// directory, so each user holds at most one file and re-uploads overwrite
// it. Returns errBadAvatarType when the extension is not allow-listed.
func (app *App) saveAvatar(u *User, fh *multipart.FileHeader) (string, error) {
	ext, ok := avatarExt(fh.Filename)
	if !ok {
		return "", errBadAvatarType
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(app.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d.%s", u.ID, ext)
	dst, err := os.Create(filepath.Join(app.cfg.UploadDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return name, nil
}

// avatarURL resolves a user's avatar image: the uploaded file when one
// exists, a gravatar identicon otherwise.
func avatarURL(u *User) string {
	if u.Avatar != "" {
		return "/static/avatars/" + u.Avatar
	}
	return gravatar(u.Email)
}

func gravatar(email string) string {
	h := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon&s=48", h)
}

func datetimeformat(t time.Time) string {
	return t.Format("2006-01-02 @ 15:04")
}

// --- Template helpers ---

var pageTemplates = []string{
	"home.html",
	"login.html",
	"register.html",
	"profile.html",
	"profile_settings.html",
}

// loadTemplates parses every page template once at startup. Pages extend
// layout.html, which gonja resolves relative to the template directory.
func loadTemplates(dir string) (map[string]*exec.Template, error) {
	templates := make(map[string]*exec.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tpl, err := gonja.FromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = tpl
	}
	return templates, nil
}

func (app *App) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	tpl, ok := app.templates[name]
	if !ok {
		app.log.WithField("template", name).Error("unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if _, ok := data["current_user"]; !ok {
		if u := app.currentUser(r); u != nil {
			data["current_user"] = u
		} else {
			data["current_user"] = nil
		}
	}
	if _, ok := data["flashes"]; !ok {
		data["flashes"] = app.flashes(w, r)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.Execute(w, exec.NewContext(data)); err != nil {
		app.log.WithError(err).WithField("template", name).Error("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
