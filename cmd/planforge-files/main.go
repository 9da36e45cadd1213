// planforge-files is the file-manager helper service. It writes plan
// documents, builds zip archives, and lints markdown, all inside a
// sandboxed output directory. PlanForge starts and stops it
// automatically; running it by hand is only useful for debugging.
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

	"github.com/planforge/planforge/internal/services/files"
)

func main() {
	port := flag.Int("port", files.DefaultPort, "port to listen on (127.0.0.1 only)")
	root := flag.String("root", "output", "sandbox directory for created files")
	flag.Parse()

	srv, err := files.New(*root)
	if err != nil {
		log.Fatalf("file-manager: %v", err)
	}

	if err := serve(fmt.Sprintf("127.0.0.1:%d", *port), srv.Handler()); err != nil {
		log.Fatalf("file-manager: %v", err)
	}
}

func serve(addr string, handler http.Handler) error {
	httpSrv := &http.Server{Addr: addr, Handler: handler}

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

	log.Printf("file-manager listening on %s", addr)
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
