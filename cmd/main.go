package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"posts-api/config"
	"posts-api/db"
	"posts-api/routes"
	"posts-api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()

	conn, err := db.InitDB(initCtx, cfg.DBDriver, cfg.DBURL)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer closeDB(conn)

	if err := db.Migrate(initCtx, conn, cfg.DBDriver); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	var store db.PostStore = db.NewSQLPostStore(conn, cfg.DBDriver)
	if cfg.RedisURL != "" {
		redisClient, err := db.NewRedisClient(initCtx, db.NewRedisConfig(cfg.RedisURL))
		if err != nil {
			log.Fatalf("Error initializing Redis: %v", err)
		}
		defer redisClient.Close()
		store = db.NewCachedPostStore(store, redisClient, db.PostCacheTTL)
		log.Println("Redis connection initialized successfully.")
	} else {
		log.Println("REDIS_URL not set, post cache disabled.")
	}

	verifier := utils.NewIdentityClient(cfg.UsersPath, cfg.IdentityTimeout)

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        routes.SetupRoutes(appCtx, cfg, store, verifier),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15*time.Second + cfg.IdentityTimeout,
		MaxHeaderBytes: 7500,
		IdleTimeout:    120 * time.Second,
	}

	// Use a wait group to manage graceful shutdown
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()
	log.Printf("Server started on :%s", cfg.Port)

	// Wait for interrupt signal to gracefully shut down the server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %+v", err)
	}

	wg.Wait()
	cancelApp()
	log.Println("Server exited gracefully")
}

func closeDB(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
