package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/instaclone/instaclone/internal/auth"
	"github.com/instaclone/instaclone/internal/client"
	"github.com/instaclone/instaclone/internal/config"
	httpapp "github.com/instaclone/instaclone/internal/http"
	"github.com/instaclone/instaclone/internal/logging"
	"github.com/instaclone/instaclone/internal/rate"
	"github.com/instaclone/instaclone/internal/service"
	"github.com/instaclone/instaclone/internal/store/sqlite"
	"github.com/instaclone/instaclone/internal/upload"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "instaclone",
		Usage:   "photo sharing API server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional dotenv file"},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server"},
				Usage:   "start the HTTP API (default)",
				Action:  runServer,
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema and print its version",
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "populate a running server with demo users and posts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "server base URL", EnvVars: []string{"INSTACLONE_URL"}},
				},
				Action: runSeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("instaclone failed")
	}
}

// ============================================================================
// SERVER
// ============================================================================

func runServer(c *cli.Context) error {
	cfg := config.Load(c.String("env-file"))
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	files, err := openStorage(ctx, cfg.Upload)
	if err != nil {
		return err
	}

	limiter, closeLimiter := openLimiter(ctx, cfg.Redis, log)
	defer closeLimiter()

	authSvc := auth.NewService(st, []byte(cfg.TokenSecret), cfg.TokenTTL, cfg.HashIterations)
	svc := service.New(service.Deps{
		Store:  st,
		Auth:   authSvc,
		Ingest: upload.NewIngest(files, log.WithField("component", "upload")),
		Log:    log.WithField("component", "service"),
	})
	server := httpapp.NewServer(httpapp.Options{
		Service: svc,
		Auth:    authSvc,
		Store:   st,
		Files:   files,
		Limiter: limiter,
		Limits:  cfg.RateLimits,
		Log:     log.WithField("component", "http"),

		TrustProxy: cfg.TrustProxy,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("instaclone listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg config.Upload) (upload.Storage, error) {
	switch cfg.Backend {
	case "minio":
		s, err := upload.NewMinio(ctx, upload.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("open minio storage: %w", err)
		}
		return s, nil
	case "disk", "":
		s, err := upload.NewDisk(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open disk storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}

// openLimiter prefers Redis when configured so limits hold across instances.
func openLimiter(ctx context.Context, cfg config.Redis, log logrus.FieldLogger) (rate.Limiter, func()) {
	if cfg.Addr == "" {
		return rate.NewMemory(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.Addr).Warn("redis unreachable, rate limits will fail open until it recovers")
	}
	return rate.NewRedis(rdb, log.WithField("component", "rate")), func() { _ = rdb.Close() }
}

// ============================================================================
// MIGRATE
// ============================================================================

func runMigrate(c *cli.Context) error {
	cfg := config.Load(c.String("env-file"))
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	v, err := st.SchemaVersion(c.Context)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"db": cfg.DBPath, "version": v}).Info("schema up to date")
	fmt.Println(v)
	return nil
}

// ============================================================================
// SEED
// ============================================================================

var seedUsers = []struct {
	username string
	fullName string
	bio      string
}{
	{"alphauser", "Alpha User", "Sunsets and coffee"},
	{"betauser", "Beta User", "Street photography"},
	{"gammauser", "Gamma User", "Mostly cats"},
}

var seedCaptions = []string{
	"Golden hour at the pier",
	"Morning light through the window",
	"Found this little guy on the way home",
}

func runSeed(c *cli.Context) error {
	baseURL := c.String("url")
	logrus.WithField("url", baseURL).Info("seeding")

	clients := make([]*client.Client, 0, len(seedUsers))
	for _, u := range seedUsers {
		cl := client.New(baseURL)
		email := u.username + "@example.com"
		if _, err := cl.Signup(u.username, email, "password", u.fullName); err != nil && client.StatusOf(err) != http.StatusBadRequest {
			return fmt.Errorf("signup %s: %w", u.username, err)
		}
		if _, err := cl.Login(email, "password"); err != nil {
			return fmt.Errorf("login %s: %w", u.username, err)
		}
		if _, err := cl.UpdateProfile(map[string]string{"bio": u.bio}, nil); err != nil {
			return fmt.Errorf("update %s: %w", u.username, err)
		}
		logrus.WithField("username", u.username).Info("user ready")
		clients = append(clients, cl)
	}

	for i, cl := range clients {
		next := seedUsers[(i+1)%len(seedUsers)].username
		if _, err := cl.Follow(next); err != nil {
			return fmt.Errorf("follow %s: %w", next, err)
		}
	}

	for i, cl := range clients {
		photo, err := seedPhoto(i)
		if err != nil {
			return err
		}
		article, err := cl.CreateArticle(seedCaptions[i%len(seedCaptions)], client.Upload{Name: fmt.Sprintf("seed-%d.png", i), Data: photo})
		if err != nil {
			return fmt.Errorf("post article: %w", err)
		}

		fan := clients[(i+1)%len(clients)]
		if _, err := fan.Favorite(article.ID); err != nil {
			return fmt.Errorf("favorite %d: %w", article.ID, err)
		}
		if _, err := fan.CreateComment(article.ID, "Love this one"); err != nil {
			return fmt.Errorf("comment %d: %w", article.ID, err)
		}
		logrus.WithField("article", article.ID).Info("article posted")
	}

	logrus.Info("seed complete")
	return nil
}

// seedPhoto renders a small solid-colour PNG so seeding needs no fixtures.
func seedPhoto(n int) ([]byte, error) {
	palette := []color.RGBA{{R: 240, G: 128, B: 64, A: 255}, {R: 64, G: 160, B: 220, A: 255}, {R: 120, G: 200, B: 90, A: 255}}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fill := palette[n%len(palette)]
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode seed photo: %w", err)
	}
	return buf.Bytes(), nil
}
