// planforge-search is the google-search helper service. It proxies the
// Google Custom Search API for market research queries. Without
// GOOGLE_API_KEY and GOOGLE_SEARCH_ENGINE_ID set it still starts, but
// answers searches with 503 so the pipeline can degrade gracefully.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planforge/planforge/internal/services/search"
)

func main() {
	port := flag.Int("port", search.DefaultPort, "port to listen on (127.0.0.1 only)")
	flag.Parse()

	srv := search.New()
	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Printf("WARNING: shutdown: %v", err)
		}
	}()

	log.Printf("google-search listening on %s", addr)
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("google-search: %v", err)
	}
}
