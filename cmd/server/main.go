package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"expense-service/internal/handlers"
	"expense-service/internal/service"
	"expense-service/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	port := fs.String("port", "8080", "Port to listen on")
	dbPath := fs.String("db", "expenses.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Env vars override flag defaults when the flag was not set explicitly.
	if p := os.Getenv("PORT"); p != "" && *port == "8080" {
		*port = p
	}
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == "expenses.db" {
		*dbPath = path
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	h := handlers.NewHandlers(service.NewService(db))
	mux := setupRouter(h)

	addr := ":" + *port
	log.Printf("Listening on %s (db: %s)", addr, *dbPath)
	return http.ListenAndServe(addr, handlers.CORSMiddleware(mux))
}

func setupRouter(h *handlers.Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Health)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /expenses", h.CreateExpense)
	mux.HandleFunc("GET /expenses", h.ListExpenses)
	mux.HandleFunc("GET /expenses/categories", h.ListCategories)
	mux.HandleFunc("GET /expenses/statistics", h.Statistics)

	return mux
}
