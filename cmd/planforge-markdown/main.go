// planforge-markdown is the markdownify helper service. It normalizes
// generated markdown: line endings, heading spacing, blank-line runs,
// and unterminated code fences.
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

	"github.com/planforge/planforge/internal/services/markdown"
)

func main() {
	port := flag.Int("port", markdown.DefaultPort, "port to listen on (127.0.0.1 only)")
	flag.Parse()

	srv := markdown.New()
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

	log.Printf("markdownify listening on %s", addr)
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("markdownify: %v", err)
	}
}
