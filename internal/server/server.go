// Package server wires all components and creates the MCP server
// instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on
// abstractions. No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/planforge/planforge/internal/agent"
	"github.com/planforge/planforge/internal/llm"
	"github.com/planforge/planforge/internal/mcpclient"
	"github.com/planforge/planforge/internal/packager"
	"github.com/planforge/planforge/internal/prompts"
	"github.com/planforge/planforge/internal/resources"
	"github.com/planforge/planforge/internal/services/files"
	"github.com/planforge/planforge/internal/services/markdown"
	"github.com/planforge/planforge/internal/services/search"
	"github.com/planforge/planforge/internal/store"
	"github.com/planforge/planforge/internal/supervisor"
	"github.com/planforge/planforge/internal/tools"
	"github.com/planforge/planforge/internal/validate"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config holds the knobs the composition root needs.
type Config struct {
	DataDir   string // settings/session database location
	OutputDir string // where archives land
	LogDir    string // helper service logs
	APIKey    string // explicit Gemini key, overrides the environment
}

// App bundles everything a command needs to run: the MCP server, the
// helper-service supervisor, and the generation service for direct use.
type App struct {
	MCP        *server.MCPServer
	Supervisor *supervisor.Supervisor
	Service    *agent.Service
	Store      *store.Store
}

// New creates and configures the application with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function stops the helper services and closes the
// session store, and must be called on shutdown (typically via defer).
// It is always non-nil and safe to call even when New fails.
func New(ctx context.Context, cfg Config) (*App, func(), error) {
	// --- Shared dependencies ---

	storeCfg := store.DefaultConfig()
	if cfg.DataDir != "" {
		storeCfg.DataDir = cfg.DataDir
	}
	st, err := store.New(storeCfg)
	if err != nil {
		return nil, noop, fmt.Errorf("opening session store: %w", err)
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir, err = st.GetSetting(store.SettingOutputDir, "output")
		if err != nil {
			outputDir = "output"
		}
	}
	logDir := cfg.LogDir
	if logDir == "" {
		logDir, err = st.GetSetting(store.SettingLogDir, "logs")
		if err != nil {
			logDir = "logs"
		}
	}

	apiKey, err := store.ResolveAPIKey(cfg.APIKey)
	if err != nil {
		st.Close()
		return nil, noop, err
	}
	if warning, err := validate.APIKey(apiKey); err != nil {
		st.Close()
		return nil, noop, fmt.Errorf("checking API key: %w", err)
	} else if warning != "" {
		log.Printf("WARNING: %s", warning)
	}

	llmClient, err := llm.NewClient(ctx, apiKey)
	if err != nil {
		st.Close()
		return nil, noop, err
	}

	sup := supervisor.New(HelperSpecs(outputDir), supervisor.WithLogDir(logDir))

	svc := &agent.Service{
		Pipeline: &agent.Pipeline{
			LLM:      llmClient,
			Search:   mcpclient.NewSearchClient(),
			Markdown: mcpclient.NewMarkdownClient(),
		},
		Store: st,
		Packager: &packager.Packager{
			Files:     mcpclient.NewFilesClient(),
			OutputDir: outputDir,
		},
	}

	cleanup := func() {
		sup.StopAll()
		if err := st.Close(); err != nil {
			log.Printf("WARNING: session store close: %v", err)
		}
	}

	// --- The MCP server ---

	s := server.NewMCPServer(
		"planforge",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	generateTool := tools.NewGenerateTool(svc)
	s.AddTool(generateTool.Definition(), generateTool.Handle)

	validateTool := tools.NewValidateTool()
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	getSessionTool := tools.NewGetSessionTool(st)
	s.AddTool(getSessionTool.Definition(), getSessionTool.Handle)

	listSessionsTool := tools.NewListSessionsTool(st)
	s.AddTool(listSessionsTool.Definition(), listSessionsTool.Handle)

	// --- Register prompts ---

	refinePrompt := prompts.NewRefinePrompt()
	s.AddPrompt(refinePrompt.Definition(), refinePrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(st, sup)
	s.AddResource(resourceHandler.SessionsResource(), resourceHandler.HandleSessions)
	s.AddResource(resourceHandler.ServicesResource(), resourceHandler.HandleServices)

	return &App{MCP: s, Supervisor: sup, Service: svc, Store: st}, cleanup, nil
}

// noop is the default cleanup when initialization fails early.
func noop() {}

// HelperSpecs describes the three helper services. Binaries are expected
// next to the running executable; falling back to PATH lookup names. All
// three run in the current working directory so relative paths (the
// output sandbox, log files) resolve the same way for every helper.
func HelperSpecs(outputDir string) []supervisor.ServiceSpec {
	workDir, _ := os.Getwd()
	binDir := ""
	if exe, err := os.Executable(); err == nil {
		binDir = filepath.Dir(exe)
	}
	bin := func(name string) string {
		if binDir == "" {
			return name
		}
		candidate := filepath.Join(binDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		return name
	}

	return []supervisor.ServiceSpec{
		{
			Name:    "file-manager",
			Command: []string{bin("planforge-files"), "--port", fmt.Sprint(files.DefaultPort), "--root", outputDir},
			URL:     fmt.Sprintf("http://127.0.0.1:%d", files.DefaultPort),
			Dir:     workDir,
		},
		{
			Name:    "google-search",
			Command: []string{bin("planforge-search"), "--port", fmt.Sprint(search.DefaultPort)},
			URL:     fmt.Sprintf("http://127.0.0.1:%d", search.DefaultPort),
			Dir:     workDir,
		},
		{
			Name:    "markdownify",
			Command: []string{bin("planforge-markdown"), "--port", fmt.Sprint(markdown.DefaultPort)},
			URL:     fmt.Sprintf("http://127.0.0.1:%d", markdown.DefaultPort),
			Dir:     workDir,
		},
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use PlanForge effectively.
func serverInstructions() string {
	return `You have access to PlanForge, an MCP server that turns startup ideas into complete MVP planning packages.

## WHEN TO USE PlanForge

Suggest generate_plan when the user:
- Describes a startup or product idea and wants a plan
- Asks for a PRD, roadmap, architecture sketch, or business model for a new idea
- Says things like "I have an idea for...", "what would it take to build..."

Do NOT use it for changes to existing products or for ideas the user has
not confirmed they want planned.

## Workflow

1. If the idea is vague, use the refine-idea prompt (or ask up to three
   clarifying questions yourself) before generating
2. Run validate_idea to confirm the idea passes the input rules
3. Call generate_plan — it researches the market, synthesizes findings,
   and writes eight markdown documents, packaged as a zip archive. This
   takes a few minutes; tell the user before calling it.
4. Report the archive path and session id from the result
5. Use get_session / list_sessions to answer questions about past runs

## What the archive contains

overview, features, architecture, design, user flow, roadmap, business
model, and testing plan documents, plus a README explaining reading
order. All markdown, suitable for humans or coding agents.

## Important Rules
- Ideas must be 10 to 1000 characters and describe an actual product
- Generation is one idea at a time; there is no partial regeneration
- If generation fails, the session records the error — fetch it with
  get_session before retrying`
}
