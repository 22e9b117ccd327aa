package main

import (
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"codesync-server/config"
	"codesync-server/handlers/api/execute"
	"codesync-server/handlers/websocket"
	"codesync-server/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

//go:embed all:frontend
var assets embed.FS

type roomInfo struct {
	ID    string `json:"id"`
	Users int    `json:"users"`
}

// handleUI serves the embedded editor page. Unmatched non-asset paths
// fall through to index.html so client-side routes resolve.
func handleUI() http.HandlerFunc {
	sub, err := fs.Sub(assets, "frontend")
	if err != nil {
		panic(err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		content, err := fs.ReadFile(sub, path)
		if err != nil {
			// Client-side routes have no extension; they all resolve
			// to the entry page.
			if !strings.Contains(path, ".") {
				path = "index.html"
				content, err = fs.ReadFile(sub, path)
			}
			if err != nil {
				http.NotFound(w, r)
				return
			}
		}

		contentType := http.DetectContentType(content)
		switch {
		case strings.HasSuffix(path, ".js"):
			contentType = "application/javascript"
		case strings.HasSuffix(path, ".html"):
			contentType = "text/html"
		case strings.HasSuffix(path, ".css"):
			contentType = "text/css"
		}

		w.Header().Set("Content-Type", contentType)
		if _, err := w.Write(content); err != nil {
			logrus.WithError(err).Error("Failed to serve asset")
		}
	}
}

func setupRouter(cfg *config.Config, execSvc *execute.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: cfg.AllowCredentials(),
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "codesync-server is running")
	})

	r.Post("/run", execute.HandleRun(execSvc))

	r.Get("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		activeRooms := websocket.GetActiveRooms()
		roomList := make([]roomInfo, 0, len(activeRooms))
		for id, count := range activeRooms {
			roomList = append(roomList, roomInfo{ID: id, Users: count})
		}

		sort.Slice(roomList, func(i, j int) bool {
			if roomList[i].Users == roomList[j].Users {
				return roomList[i].ID < roomList[j].ID
			}
			return roomList[i].Users > roomList[j].Users
		})

		render.JSON(w, r, roomList)
	})

	return r
}

func waitForShutdown(ioo *socketio.Server) {
	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down")
	ioo.Close(nil)
	os.Exit(0)
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	store := stores.GetStore()
	execSvc := execute.NewService(cfg.Judge0URL, cfg.Judge0APIKey, cfg.Judge0APIHost, cfg.ExecuteTimeout)

	r := setupRouter(cfg, execSvc)
	ioo := websocket.SetupSocketIO(cfg, store, store)
	r.Handle("/socket.io/", ioo.ServeHandler(nil))
	r.NotFound(handleUI())

	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	logrus.WithField("addr", listenAddr).Info("starting server")
	go func() {
		if err := http.ListenAndServe(listenAddr, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo)
}
