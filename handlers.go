package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

func (app *App) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(app.limitBody)

	r.HandleFunc("/", app.homeHandler).Methods("GET")
	r.HandleFunc("/tweet", app.requireLogin(app.createTweetHandler)).Methods("POST")
	r.HandleFunc("/tweet/{id:[0-9]+}/like", app.requireLogin(app.likeHandler)).Methods("POST")
	r.HandleFunc("/tweet/{id:[0-9]+}/comment", app.requireLogin(app.commentHandler)).Methods("POST")
	r.HandleFunc("/u/{username}", app.userProfileHandler).Methods("GET")
	r.HandleFunc("/settings/profile", app.requireLogin(app.profileSettingsHandler)).Methods("GET", "POST")
	r.HandleFunc("/register", app.registerHandler).Methods("GET", "POST")
	r.HandleFunc("/login", app.loginHandler).Methods("GET", "POST")
	r.HandleFunc("/logout", app.requireLogin(app.logoutHandler)).Methods("GET")

	fs := http.FileServer(http.Dir(app.cfg.StaticDir))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs))

	return r
}

// limitBody caps every request body, so oversized uploads die before any
// handler logic runs.
func (app *App) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, app.cfg.MaxUpload)
		next.ServeHTTP(w, r)
	})
}

// requireLogin resolves the session to a user and hands it to the wrapped
// handler; anonymous requests are sent to the login page.
func (app *App) requireLogin(next func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := app.currentUser(r)
		if user == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r, user)
	}
}

func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// --- Timeline views ---

type commentView struct {
	Author    string
	AuthorURL string
	Body      string
	CreatedAt string
}

type tweetView struct {
	ID        uint
	Body      string
	CreatedAt string
	Author    string
	AuthorURL string
	AvatarURL string
	LikeCount int
	LikedByMe bool
	Comments  []commentView
}

func tweetViews(tweets []Tweet, viewer *User) []tweetView {
	views := make([]tweetView, 0, len(tweets))
	for _, t := range tweets {
		v := tweetView{
			ID:        t.ID,
			Body:      t.Body,
			CreatedAt: datetimeformat(t.CreatedAt),
			Author:    t.User.Username,
			AuthorURL: "/u/" + t.User.Username,
			AvatarURL: avatarURL(&t.User),
			LikeCount: len(t.Likes),
		}
		if viewer != nil {
			for _, l := range t.Likes {
				if l.UserID == viewer.ID {
					v.LikedByMe = true
					break
				}
			}
		}
		for _, c := range t.Comments {
			v.Comments = append(v.Comments, commentView{
				Author:    c.User.Username,
				AuthorURL: "/u/" + c.User.Username,
				Body:      c.Body,
				CreatedAt: datetimeformat(c.CreatedAt),
			})
		}
		views = append(views, v)
	}
	return views
}

// --- Handlers ---

// GET / — home timeline, every tweet newest first.
func (app *App) homeHandler(w http.ResponseWriter, r *http.Request) {
	tweets, err := listTimeline(app.db)
	if err != nil {
		app.log.WithError(err).Error("list timeline")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	app.render(w, r, "home.html", map[string]interface{}{
		"tweets": tweetViews(tweets, app.currentUser(r)),
	})
}

// POST /tweet
func (app *App) createTweetHandler(w http.ResponseWriter, r *http.Request, user *User) {
	if errs := tweetForm().validate(r); len(errs) > 0 {
		app.addFlash(w, r, errs["body"])
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	tweet := Tweet{Body: strings.TrimSpace(r.FormValue("body")), UserID: user.ID}
	if err := app.db.Create(&tweet).Error; err != nil {
		app.log.WithError(err).Error("create tweet")
		app.addFlash(w, r, "Your tweet could not be posted")
	} else {
		app.addFlash(w, r, "Your tweet was posted")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// POST /tweet/{id}/like — toggle semantics.
func (app *App) likeHandler(w http.ResponseWriter, r *http.Request, user *User) {
	tweet, ok := app.tweetFromPath(w, r)
	if !ok {
		return
	}
	if err := toggleLike(app.db, user.ID, tweet.ID); err != nil {
		// A racing duplicate insert lands here; the unique pair index
		// already holds the invariant, so surface it generically.
		app.log.WithError(err).Warn("toggle like")
		app.addFlash(w, r, "Could not update like")
	}
	redirectBack(w, r)
}

// POST /tweet/{id}/comment
func (app *App) commentHandler(w http.ResponseWriter, r *http.Request, user *User) {
	tweet, ok := app.tweetFromPath(w, r)
	if !ok {
		return
	}
	if errs := commentForm().validate(r); len(errs) > 0 {
		app.addFlash(w, r, errs["body"])
		redirectBack(w, r)
		return
	}
	comment := Comment{
		Body:    strings.TrimSpace(r.FormValue("body")),
		UserID:  user.ID,
		TweetID: tweet.ID,
	}
	if err := app.db.Create(&comment).Error; err != nil {
		app.log.WithError(err).Error("create comment")
		app.addFlash(w, r, "Your comment could not be posted")
	}
	redirectBack(w, r)
}

func (app *App) tweetFromPath(w http.ResponseWriter, r *http.Request) (*Tweet, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	tweet, err := getTweet(app.db, uint(id))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			app.log.WithError(err).Error("load tweet")
		}
		http.NotFound(w, r)
		return nil, false
	}
	return tweet, true
}

// GET /u/{username}
func (app *App) userProfileHandler(w http.ResponseWriter, r *http.Request) {
	profileUser := getUserByUsername(app.db, mux.Vars(r)["username"])
	if profileUser == nil {
		http.NotFound(w, r)
		return
	}
	if err := ensureUsername(app.db, profileUser); err != nil {
		app.log.WithError(err).Warn("ensure username")
	}
	tweets, err := listUserTweets(app.db, profileUser.ID)
	if err != nil {
		app.log.WithError(err).Error("list user tweets")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	app.render(w, r, "profile.html", map[string]interface{}{
		"profile_user":   profileUser,
		"profile_avatar": avatarURL(profileUser),
		"tweets":         tweetViews(tweets, app.currentUser(r)),
	})
}

// GET + POST /settings/profile
func (app *App) profileSettingsHandler(w http.ResponseWriter, r *http.Request, user *User) {
	if err := ensureUsername(app.db, user); err != nil {
		app.log.WithError(err).Warn("ensure username")
	}

	renderForm := func(errs map[string]string, username, bio string) {
		if errs == nil {
			errs = map[string]string{}
		}
		app.render(w, r, "profile_settings.html", map[string]interface{}{
			"errors":   errs,
			"username": username,
			"bio":      bio,
		})
	}

	if r.Method == http.MethodGet {
		renderForm(nil, user.Username, user.Bio)
		return
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Bad Request", http.StatusBadRequest)
		}
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	bio := strings.TrimSpace(r.FormValue("bio"))
	if errs := profileForm().validate(r); len(errs) > 0 {
		renderForm(errs, username, bio)
		return
	}

	updates := map[string]interface{}{"bio": bio}
	if username != "" {
		updates["username"] = username
	}
	if file, fh, err := r.FormFile("avatar"); err == nil {
		file.Close()
		// Browsers send an empty part when no file was chosen.
		if fh.Filename != "" {
			name, err := app.saveAvatar(user, fh)
			if err != nil {
				if errors.Is(err, errBadAvatarType) {
					http.Error(w, "Bad Request", http.StatusBadRequest)
					return
				}
				app.log.WithError(err).Error("save avatar")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			updates["avatar"] = name
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err := app.db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&User{}).Where("id = ?", user.ID).Updates(updates).Error
	})
	if err != nil {
		if !isUniqueViolation(err) {
			app.log.WithError(err).Error("update profile")
		}
		app.addFlash(w, r, "Username is taken or the update failed")
		renderForm(nil, username, bio)
		return
	}

	if username == "" {
		username = user.Username
	}
	app.addFlash(w, r, "Profile updated")
	http.Redirect(w, r, "/u/"+username, http.StatusFound)
}

// GET + POST /register
func (app *App) registerHandler(w http.ResponseWriter, r *http.Request) {
	if app.currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if r.Method == http.MethodPost {
		errs := registerForm().validate(r)
		if len(errs) == 0 {
			email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
			if getUserByEmail(app.db, email) != nil {
				app.addFlash(w, r, "That email address is already registered")
				http.Redirect(w, r, "/register", http.StatusFound)
				return
			}
			user := User{Email: email, PasswordHash: hashPassword(r.FormValue("password"))}
			err := app.db.Transaction(func(tx *gorm.DB) error {
				user.Username = deriveUsername(tx, email)
				return tx.Create(&user).Error
			})
			if err != nil {
				// Lost a race on email or username; the unique indexes
				// decided, report it generically.
				if !isUniqueViolation(err) {
					app.log.WithError(err).Error("create user")
				}
				app.addFlash(w, r, "Registration failed, please try again")
				http.Redirect(w, r, "/register", http.StatusFound)
				return
			}
			app.loginUser(w, r, &user)
			app.addFlash(w, r, "Welcome to chirp")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		app.render(w, r, "register.html", map[string]interface{}{
			"errors": errs,
			"email":  r.FormValue("email"),
		})
		return
	}

	app.render(w, r, "register.html", map[string]interface{}{
		"errors": map[string]string{},
		"email":  "",
	})
}

// GET + POST /login
func (app *App) loginHandler(w http.ResponseWriter, r *http.Request) {
	if app.currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if r.Method == http.MethodPost {
		errs := loginForm().validate(r)
		if len(errs) == 0 {
			email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
			user := getUserByEmail(app.db, email)
			// Unknown email and wrong password must be indistinguishable.
			if user == nil || !checkPassword(user.PasswordHash, r.FormValue("password")) {
				app.addFlash(w, r, "Invalid email or password")
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			app.loginUser(w, r, user)
			app.addFlash(w, r, "You were logged in")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		app.render(w, r, "login.html", map[string]interface{}{
			"errors": errs,
			"email":  r.FormValue("email"),
		})
		return
	}

	app.render(w, r, "login.html", map[string]interface{}{
		"errors": map[string]string{},
		"email":  "",
	})
}

// GET /logout
func (app *App) logoutHandler(w http.ResponseWriter, r *http.Request, _ *User) {
	app.logoutUser(w, r)
	app.addFlash(w, r, "You were logged out")
	http.Redirect(w, r, "/", http.StatusFound)
}
