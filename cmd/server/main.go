/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the deposit engine server: SQLite store, ledger
  service, collaborators, closure orchestrator, HTTP router, graceful
  shutdown.

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: deposits.db)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for active
  requests, close the database, exit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/deposit-engine/accrual"
	"github.com/warp/deposit-engine/api"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/journal"
	"github.com/warp/deposit-engine/ledger"
	"github.com/warp/deposit-engine/numbering"
	"github.com/warp/deposit-engine/store/sqlite"
	"github.com/warp/deposit-engine/transfer"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "deposits.db", "SQLite database path")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	ledgerSvc := ledger.NewService(store)
	closures := &deposit.Service{
		Accounts:  store,
		Products:  deposit.NewStaticProducts(),
		Ledger:    ledgerSvc,
		Calc:      deposit.NewMaturityCalculator(accrual.DailyBalanceCalculator{}),
		Transfers: transfer.NewService(ledgerSvc),
		Bridge:    journal.NewBridge(&journal.MemorySink{}),
		Numbers:   numbering.NewSequential("TD"),
	}

	handler := api.NewHandler(closures, ledgerSvc, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
