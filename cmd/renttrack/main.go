package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strconv"

	"github.com/asaskevich/EventBus"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"renttrack/internal/api"
	"renttrack/internal/cache"
	"renttrack/internal/db"
	"renttrack/internal/expiry"
	"renttrack/internal/live"
	"renttrack/internal/model"
	"renttrack/internal/store"
	"renttrack/internal/suggest"
)

func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: renttrack <init|serve>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\nUsage: renttrack <init|serve>\n", os.Args[1])
		os.Exit(1)
	}
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbPath := fs.String("db", "renttrack.sqlite3", "path to SQLite database file")
	fs.Parse(args)

	if _, err := os.Stat(*dbPath); err == nil {
		fmt.Fprintf(os.Stderr, "Error: database file %s already exists\n", *dbPath)
		os.Exit(1)
	}

	database, password, err := initDatabase(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	database.Close()

	printAdminCredentials(*dbPath, password)
}

func printAdminCredentials(dbPath, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: admin\n")
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password — it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", envDefault("RENTTRACK_DB", "renttrack.sqlite3"), "path to SQLite database file")
	addr := fs.String("addr", envDefault("RENTTRACK_ADDR", ":8080"), "listen address")
	jwtSecret := fs.String("jwt-secret", os.Getenv("RENTTRACK_JWT_SECRET"), "JWT signing key (auto-generated if empty)")
	sweepSchedule := fs.String("sweep", envDefault("RENTTRACK_SWEEP", expiry.DefaultSchedule), "expiry sweep cron schedule")
	fs.Parse(args)

	log := zap.S()

	if *jwtSecret == "" {
		secret, err := generatePassword(32)
		if err != nil {
			log.Fatalw("generating JWT secret", "err", err)
		}
		*jwtSecret = secret
		log.Info("JWT secret auto-generated, tokens will be invalidated on restart")
	}

	// Auto-init the database on first run.
	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		database, password, err := initDatabase(*dbPath)
		if err != nil {
			log.Fatalw("initializing database", "err", err)
		}
		database.Close()
		printAdminCredentials(*dbPath, password)
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalw("opening database", "path", *dbPath, "err", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalw("migrating database", "err", err)
	}

	bus := EventBus.New()
	s := store.New(database, bus)
	hub := live.NewHub(s, bus)

	// Optional Redis cache for item list reads.
	var itemsCache *cache.ItemsCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		itemsCache, err = cache.New(context.Background(), redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
		if err != nil {
			log.Fatalw("connecting to redis", "addr", redisAddr, "err", err)
		}
		defer itemsCache.Close()
		if err := itemsCache.AttachBus(bus); err != nil {
			log.Fatalw("attaching cache to event bus", "err", err)
		}
		log.Infow("item list cache enabled", "addr", redisAddr)
	}

	// Optional end-date suggestions.
	suggestClient := suggest.New(
		envDefault("SUGGEST_BASE_URL", "https://api.openai.com/v1"),
		os.Getenv("SUGGEST_API_KEY"),
		os.Getenv("SUGGEST_MODEL"),
	)
	if suggestClient.Enabled() {
		log.Info("end-date suggestions enabled")
	}

	// Periodic expiry sweep.
	sweeper := expiry.NewSweeper(s)
	scheduler := cron.New()
	if err := sweeper.Schedule(scheduler, *sweepSchedule); err != nil {
		log.Fatalw("scheduling expiry sweep", "schedule", *sweepSchedule, "err", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Catch up on items that expired while the server was down.
	if n, err := sweeper.Run(context.Background()); err != nil {
		log.Errorw("initial expiry sweep", "err", err)
	} else if n > 0 {
		log.Infow("initial expiry sweep", "expired", n)
	}

	router := api.NewRouter(api.Deps{
		Store:     s,
		Hub:       hub,
		Cache:     itemsCache,
		Suggest:   suggestClient,
		JWTSecret: *jwtSecret,
	})
	handler := api.LoggingMiddleware(router)

	log.Infow("server listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatalw("server error", "err", err)
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// initDatabase creates a new database, runs migrations and creates the admin
// account with a generated password.
func initDatabase(path string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	s := store.New(database, nil)
	if _, err := s.CreateUser(context.Background(), "admin", string(hash), model.ApprovalActive); err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("creating admin user: %w", err)
	}

	return database, password, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
