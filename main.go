package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"

	"github.com/forentfraps/navigator/internal/catalogue"
	"github.com/forentfraps/navigator/internal/config"
	"github.com/forentfraps/navigator/internal/graphstore"
	"github.com/forentfraps/navigator/internal/handler"
	"github.com/forentfraps/navigator/internal/journey"
	"github.com/forentfraps/navigator/internal/materialise"
	"github.com/forentfraps/navigator/internal/missset"
	"github.com/forentfraps/navigator/internal/routing"
	"github.com/forentfraps/navigator/internal/scheduleclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Unable to load config:", err)
	}

	// Database connection
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("Unable to parse DB URL:", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Unable to create connection pool:", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("Unable to connect to database:", err)
	}
	log.Println("✅ Connected to Postgres graph store")

	store := graphstore.NewPostgresStore(pool, cfg.WalkSecondsPerKM)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("Unable to migrate graph store schema:", err)
	}

	// Station Catalogue Cache
	misses, err := missset.New(cfg.MissSetFile)
	if err != nil {
		log.Fatal("Unable to load miss set:", err)
	}

	client := scheduleclient.New(cfg.ScheduleBaseURL, cfg.ScheduleAPIKey, cfg.ScheduleLang, cfg.HTTPTimeout, misses)

	cat := catalogue.New(cfg.CatalogueFile)
	if err := cat.LoadFromFile(); err != nil {
		log.Fatal("Unable to load catalogue snapshot:", err)
	}
	if cfg.ScheduleAPIKey != "" {
		if err := cat.Refresh(ctx, client); err != nil {
			log.Printf("catalogue refresh failed, continuing with on-disk snapshot: %v", err)
		} else {
			log.Println("✅ Refreshed station catalogue from schedule source")
		}
	}

	materialiser := materialise.New(client, store, cat, cfg.WalkRadiusKM, cfg.BulkWorkers)
	expander := routing.NewStoreExpander(materialiser)
	coords := routing.NewCatalogueCoordinates(cat)
	engine := routing.New(expander, coords, cfg.HeuristicSpeedKMH, cfg.TransportRatio, cfg.WalkSecondsPerKM, cfg.MaterialiseWindow)
	journeyService := journey.New(cat, engine)

	transportHandler := handler.NewTransportHandler(cat, journeyService)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok", "service":"navigator"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, `{"status":"error", "db":"disconnected"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok", "db":"connected"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/settlements", transportHandler.GetSettlements)
		r.Get("/stations", transportHandler.GetStations)
		r.Get("/stations/{code}", transportHandler.GetStationDetails)
		r.Get("/route", transportHandler.GetRoute)
		r.Post("/route", transportHandler.PostRoute)
	})

	log.Printf("🚀 Server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
