package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"memeverse/catalog"
	"memeverse/config"
	"memeverse/core"
	"memeverse/handlers/api/memes"
	"memeverse/handlers/api/profile"
	"memeverse/handlers/api/uploads"
	"memeverse/handlers/auth"
	"memeverse/handlers/websocket"
	authMiddleware "memeverse/middleware"
	"memeverse/state"
	"memeverse/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type app struct {
	store    *state.Store
	catalog  *catalog.Client
	uploader *catalog.Uploader
	feed     *websocket.Feed
	prefs    core.PreferenceStore
}

func setupRouter(a *app) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.OptionalAuth)

		r.Route("/memes", func(r chi.Router) {
			r.Get("/trending", memes.HandleTrending(a.store, a.catalog))
			r.Get("/explore", memes.HandleExplore(a.store, a.catalog))
			r.Get("/mine", memes.HandleUserMemes(a.store))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", memes.HandleGet(a.store, a.catalog))
				r.Post("/like", memes.HandleLike(a.store, a.feed))
				r.Post("/comments", memes.HandleComment(a.store, a.feed))
			})
		})

		r.Get("/leaderboard", memes.HandleLeaderboard(a.store))
		r.Post("/uploads", uploads.HandleCreate(a.store, a.uploader, a.catalog))

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", profile.HandleGet(a.prefs))
			r.Put("/", profile.HandleUpdate(a.prefs))
		})

		r.Get("/watchers", func(w http.ResponseWriter, req *http.Request) {
			render.JSON(w, req, a.feed.Watchers())
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", auth.HandleLogin)
		r.Get("/callback", auth.HandleCallback)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/me", profile.HandleMe())
		})
	})

	return r
}

func waitForShutdown(feed *websocket.Feed) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	feed.Close()
	fmt.Println("Shutting down...")
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	configPath := flag.String("config", "", "Path to the configuration file (defaults to ./config.yaml).")
	logLevel := flag.String("loglevel", "", "Override the configured log level (debug, info, warn, error).")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	levelName := cfg.Server.LogLevel
	if *logLevel != "" {
		levelName = *logLevel
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()

	prefs := stores.GetStore(cfg.Storage)
	st := state.New(context.Background(), prefs)

	feed := websocket.SetupSocketIO()

	a := &app{
		store:    st,
		catalog:  catalog.NewClient(cfg.Imgflip),
		uploader: catalog.NewUploader(cfg.Imgbb),
		feed:     feed,
		prefs:    prefs,
	}

	r := setupRouter(a)
	r.Mount("/socket.io/", feed.Server().ServeHandler(nil))

	logrus.WithField("addr", cfg.Server.Listen).Info("starting server")
	go func() {
		if err := http.ListenAndServe(cfg.Server.Listen, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(feed)
}
