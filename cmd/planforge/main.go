// PlanForge: AI-powered MVP planning
//
// Turns a one-line startup idea into a zip archive of eight markdown
// planning documents, backed by the Gemini API and three local helper
// services for file handling, market research, and markdown cleanup.
//
// Usage:
//
//	planforge serve              # Start MCP server (stdio transport)
//	planforge generate "idea"    # Generate a plan directly
//	planforge sessions           # List recent generation sessions
//	planforge update             # Update to the latest version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	pfserver "github.com/planforge/planforge/internal/server"
	"github.com/planforge/planforge/internal/store"
	"github.com/planforge/planforge/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "generate":
		if err := runGenerate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "sessions":
		if err := runSessions(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("planforge v%s\n", pfserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runServe starts the MCP server on stdio and the three helper services
// alongside it.
func runServe() error {
	ctx, cancel := signalContext()
	defer cancel()

	app, cleanup, err := pfserver.New(ctx, pfserver.Config{})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	if err := app.Supervisor.StartAll(ctx); err != nil {
		return fmt.Errorf("starting helper services: %w", err)
	}

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	return server.ServeStdio(app.MCP)
}

// runGenerate runs a single generation end to end without an MCP client:
// spin up the helpers, generate, tear down.
func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	output := fs.String("output", "", "directory for the zip archive (default: configured output dir)")
	apiKey := fs.String("api-key", "", "Gemini API key (default: "+store.GeminiKeyEnv+" environment variable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: planforge generate [flags] \"your startup idea\"")
	}
	idea := fs.Arg(0)

	ctx, cancel := signalContext()
	defer cancel()

	app, cleanup, err := pfserver.New(ctx, pfserver.Config{
		OutputDir: *output,
		APIKey:    *apiKey,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.Supervisor.StartAll(ctx); err != nil {
		return fmt.Errorf("starting helper services: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Generating plan (this takes a few minutes)...\n")
	session, zipPath, err := app.Service.Generate(ctx, idea)
	if err != nil {
		if session != nil {
			return fmt.Errorf("generation failed (session %s): %w", session.ID, err)
		}
		return err
	}

	fmt.Printf("Plan ready: %s\n", zipPath)
	fmt.Printf("Session:    %s\n", session.ID)
	return nil
}

// runSessions prints recent generation sessions, newest first.
func runSessions(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum sessions to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := store.New(store.DefaultConfig())
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(*limit)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}

	for _, s := range sessions {
		fmt.Println(sessionLine(s))
	}
	return nil
}

// sessionLine renders one row of the sessions listing. CreatedAt is
// already SQLite datetime text, printed as stored.
func sessionLine(s store.Session) string {
	line := fmt.Sprintf("%s  %-9s  %s", s.CreatedAt, s.Status, s.Idea)
	if s.ZipPath != nil {
		line += "  → " + *s.ZipPath
	}
	return line
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. This runs in a goroutine during
// "serve" and is best-effort — network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(pfserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: planforge update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(pfserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(pfserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart planforge to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `PlanForge v%s — AI-powered MVP planning

Usage:
  planforge serve              Start the MCP server (stdio transport)
  planforge generate "idea"    Generate a planning package directly
  planforge sessions           List recent generation sessions
  planforge update             Update to the latest version

Environment:
  %s    Gemini API key (required for generation)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "planforge": {
        "command": "planforge",
        "args": ["serve"]
      }
    }
  }
`, pfserver.Version, store.GeminiKeyEnv)
}
