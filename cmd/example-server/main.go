package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"quota-gateway/middleware/quota"
	"quota-gateway/middleware/quota/domain"
	"quota-gateway/middleware/quota/infra"
)

func main() {
	// Exemplo: injetando o middleware diretamente no seu webserver, sem
	// gateway e sem Redis. O MemoryWindowStore tem a mesma semântica,
	// mas só vale para um processo.
	store := infra.NewMemoryWindowStore()
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong\n")
	})

	h := quota.Middleware(quota.Options{
		Counter: store,
		Stats:   stats,
		Credentials: quota.TableCredentials("X-Api-Key", map[string]int{
			"demo": 5,
		}),
	})(mux)

	srv := &http.Server{
		Addr:              ":8081",
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		total := stats.Total()
		log.Printf("stats: allowed=%d denied=%d", total.Allowed, total.Denied)
	}()

	log.Printf("example server on :8081 (key \"demo\", quota 5 por janela de %s)", domain.Window)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
