package main

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bentamate/bentamate-backend/internal/auth"
	"github.com/bentamate/bentamate-backend/internal/cart"
	"github.com/bentamate/bentamate-backend/internal/category"
	"github.com/bentamate/bentamate-backend/internal/config"
	"github.com/bentamate/bentamate-backend/internal/gateway"
	"github.com/bentamate/bentamate-backend/internal/network"
	"github.com/bentamate/bentamate-backend/internal/offline"
	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/report"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(logger.New())

	db := mustOpenDB(cfg.DatabaseURL)
	defer db.Close()

	// seed connectivity from whether the backend answers right now; when
	// booting offline the schema setup is deferred to the first transition
	var schemaOnce sync.Once
	online := db.Ping() == nil
	if cfg.StartupOffline {
		online = false
	}
	observer := network.NewObserver(online)
	if online {
		schemaOnce.Do(func() { ensureSchema(db) })
	} else {
		log.Printf("backend unreachable at startup, running offline")
	}

	// durable offline store; degrade to the in-memory fallback when the
	// file cannot be opened (surfaced via /api/v1/sync/status)
	var store offline.Store = offline.NewBoltStore(cfg.OfflineDBPath)
	if err := store.Init(); err != nil {
		log.Printf("warning: offline storage unavailable, queued writes will not survive a restart: %v", err)
		store = offline.NewMemoryStore()
	}
	defer store.Close()

	productRepo := product.NewPostgresRepository(db)
	productService := product.NewService(productRepo)
	txnRepo := transaction.NewPostgresRepository(db)
	txnService := transaction.NewService(txnRepo)

	backend := gateway.NewSQLBackend(txnRepo, productRepo)
	gw := gateway.New(backend, store, observer)
	sessions := cart.NewSessions(gw)

	// replay the offline queue whenever connectivity comes back
	observer.Subscribe(func(online bool) {
		if !online {
			return
		}
		go onOnline(db, gw, &schemaOnce)
	})
	go probeConnectivity(db, observer)

	// public catalog reads are network-first with cache fallback; the
	// protected reads get the same treatment behind the JWT middleware
	app.Use(gateway.ReadCache(store, observer))

	productHandler := product.NewHandler(productService, gw)
	productHandler.RegisterPublicRoutes(app)
	category.NewHandler(category.NewPostgresRepository(db)).RegisterPublicRoutes(app)

	app.Use(auth.Middleware(cfg.JWTSecret))
	app.Use(gateway.UserReadCache(store, observer))

	productHandler.RegisterProtectedRoutes(app)
	cart.NewHandler(sessions, productService).RegisterProtectedRoutes(app)
	transaction.NewHandler(txnService).RegisterProtectedRoutes(app)
	report.NewHandler(report.NewService(txnRepo, productRepo)).RegisterProtectedRoutes(app)
	gateway.NewHandler(gw, store, observer).RegisterProtectedRoutes(app)

	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func mustOpenDB(dbURL string) *sql.DB {
	if dbURL == "" {
		panic("DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		panic(err)
	}
	return db
}

// onOnline runs on every offline-to-online transition: it finishes the
// schema setup a server that booted offline still owes, then replays the
// offline queue.
func onOnline(db *sql.DB, gw *gateway.Gateway, schemaOnce *sync.Once) {
	schemaOnce.Do(func() { ensureSchema(db) })
	res, err := gw.Reconcile(context.Background())
	if err != nil {
		log.Printf("reconcile failed: %v", err)
		return
	}
	log.Printf("reconcile: %d synced, %d failed", res.Synced, res.Failed)
}

func ensureSchema(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			barcode TEXT,
			capital numeric NOT NULL DEFAULT 0,
			selling numeric NOT NULL DEFAULT 0,
			stock INT NOT NULL DEFAULT 0,
			category TEXT,
			description TEXT,
			user_id TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			items jsonb NOT NULL DEFAULT '[]',
			total numeric NOT NULL DEFAULT 0,
			amount_received numeric NOT NULL DEFAULT 0,
			change_amount numeric NOT NULL DEFAULT 0,
			user_id TEXT,
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_created_at_idx ON transactions (created_at)`,
		`CREATE INDEX IF NOT EXISTS products_barcode_idx ON products (barcode)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			log.Printf("warning: schema statement failed: %v", err)
		}
	}
}

// probeConnectivity feeds the observer from the only connectivity signal a
// headless deployment has: whether the backend answers a ping.
func probeConnectivity(db *sql.DB, observer *network.Observer) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := db.PingContext(ctx)
		cancel()
		observer.Set(err == nil)
	}
}
