package main

import (
	"net/http"
	"os"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App carries everything a handler needs: no package-level singletons.
type App struct {
	cfg       Config
	db        *gorm.DB
	store     *sessions.CookieStore
	templates map[string]*exec.Template
	log       *logrus.Logger
}

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	cfg := loadConfig()

	db, err := openDB(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}

	templates, err := loadTemplates("templates")
	if err != nil {
		log.WithError(err).Fatal("load templates")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.WithError(err).Fatal("create upload directory")
	}

	app := &App{
		cfg:       cfg,
		db:        db,
		store:     newStore(cfg.SecretKey),
		templates: templates,
		log:       log,
	}

	log.WithField("addr", cfg.Addr).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.Addr, app.routes()))
}
