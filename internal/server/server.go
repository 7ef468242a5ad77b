// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/shippopotamus/promptops/internal/compose"
	"github.com/shippopotamus/promptops/internal/config"
	"github.com/shippopotamus/promptops/internal/embeddings"
	"github.com/shippopotamus/promptops/internal/guard"
	"github.com/shippopotamus/promptops/internal/loader"
	"github.com/shippopotamus/promptops/internal/progress"
	"github.com/shippopotamus/promptops/internal/prompts"
	"github.com/shippopotamus/promptops/internal/prune"
	"github.com/shippopotamus/promptops/internal/registry"
	"github.com/shippopotamus/promptops/internal/resources"
	"github.com/shippopotamus/promptops/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the database connections and
// must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even when a subsystem failed to start.
func New() (*server.MCPServer, func(), error) {
	cfg := config.FromEnv()

	// --- Create shared dependencies ---
	//
	// The registry is the core subsystem: without it nothing useful
	// can be served, so its failure is fatal.

	reg, err := registry.New(registry.Config{
		DataDir:    cfg.DataDir,
		TokenRatio: cfg.TokenRatio,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("opening prompt registry: %w", err)
	}
	closers := []func() error{reg.Close}
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("WARNING: store close: %v", err)
			}
		}
	}

	composer := compose.NewComposer(reg, cfg.TokenRatio)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"promptops",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register registry and composition tools ---

	getTool := tools.NewGetPromptTool(reg)
	s.AddTool(getTool.Definition(), getTool.Handle)

	saveTool := tools.NewSavePromptTool(reg)
	s.AddTool(saveTool.Definition(), saveTool.Handle)

	loadTool := tools.NewLoadPromptsTool(reg)
	s.AddTool(loadTool.Definition(), loadTool.Handle)

	listTool := tools.NewListAvailableTool(reg)
	s.AddTool(listTool.Definition(), listTool.Handle)

	composeTool := tools.NewComposeTool(composer)
	s.AddTool(composeTool.Definition(), composeTool.Handle)

	estimateTool := tools.NewEstimateTool(reg, composer)
	s.AddTool(estimateTool.Definition(), estimateTool.Handle)

	bootstrapTool := tools.NewBootstrapTool(composer)
	s.AddTool(bootstrapTool.Definition(), bootstrapTool.Handle)

	// --- Register semantic search tools ---
	//
	// An Ollama endpoint is used when configured and reachable. The
	// index falls back to deterministic hash vectors otherwise, so
	// search stays available either way.

	var provider embeddings.Provider
	if cfg.OllamaURL != "" {
		if embeddings.ProbeOllama(cfg.OllamaURL, cfg.OllamaModel) {
			provider = embeddings.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, 0)
		} else {
			log.Printf("WARNING: ollama endpoint %s unreachable, using hash-fallback embeddings", cfg.OllamaURL)
		}
	}
	index, err := embeddings.NewIndex(reg, provider)
	if err != nil {
		log.Printf("WARNING: semantic search disabled: %v", err)
	} else {
		searchTool := tools.NewSearchTool(index, reg)
		s.AddTool(searchTool.Definition(), searchTool.Handle)

		discoverTool := tools.NewDiscoverTool(searchTool)
		s.AddTool(discoverTool.Definition(), discoverTool.Handle)

		smartTool := tools.NewSmartComposeTool(discoverTool, composer)
		s.AddTool(smartTool.Definition(), smartTool.Handle)
	}

	// --- Register progress queue tools ---
	//
	// The queue is an independent subsystem: if it fails to open, the
	// prompt tools keep working and the queue tools are skipped.

	queue, err := progress.New(cfg.DataDir)
	if err != nil {
		log.Printf("WARNING: progress queue disabled: %v", err)
	} else {
		closers = append(closers, queue.Close)

		pushTool := tools.NewProgressPushTool(queue)
		s.AddTool(pushTool.Definition(), pushTool.Handle)

		popTool := tools.NewProgressPopTool(queue)
		s.AddTool(popTool.Definition(), popTool.Handle)

		listQueueTool := tools.NewProgressListTool(queue)
		s.AddTool(listQueueTool.Definition(), listQueueTool.Handle)

		completeTool := tools.NewProgressCompleteTool(queue)
		s.AddTool(completeTool.Definition(), completeTool.Handle)
	}

	// --- Register duplicate-call guard tools ---

	g, err := guard.New(cfg.DataDir)
	if err != nil {
		log.Printf("WARNING: dedup guard disabled: %v", err)
	} else {
		closers = append(closers, g.Close)

		guardTool := tools.NewDedupGuardTool(g)
		s.AddTool(guardTool.Definition(), guardTool.Handle)

		readTool := tools.NewRegisterReadTool(g)
		s.AddTool(readTool.Definition(), readTool.Handle)

		clearTool := tools.NewClearDedupTool(g)
		s.AddTool(clearTool.Definition(), clearTool.Handle)
	}

	// --- Register memory pruning tool ---

	pruneTool := tools.NewPruneMemoryTool(prune.New(cfg.DataDir))
	s.AddTool(pruneTool.Definition(), pruneTool.Handle)

	// --- Register prompt-file loader tools ---
	//
	// The loader session is per-process: its cache and history start
	// empty on every server start.

	session := loader.NewSession(loader.Config{
		PromptsDir: cfg.PromptsDir,
		TokenRatio: cfg.TokenRatio,
		IndexMaxKB: cfg.IndexMaxKB,
	})

	loadFileTool := tools.NewLoadPromptFileTool(session)
	s.AddTool(loadFileTool.Definition(), loadFileTool.Handle)

	loadIndexTool := tools.NewLoadIndexTool(session)
	s.AddTool(loadIndexTool.Definition(), loadIndexTool.Handle)

	listFilesTool := tools.NewListPromptFilesTool(session)
	s.AddTool(listFilesTool.Definition(), listFilesTool.Handle)

	validateTool := tools.NewValidatePromptsTool(session)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	statsTool := tools.NewSessionStatsTool(session)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(reg)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used when server creation fails
// before any store is opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the prompt tools effectively.
func serverInstructions() string {
	return `You have access to promptops, a prompt management MCP server.

## GETTING STARTED

At the start of a session, run bootstrap_session to load the core
instruction set. For a specific task, follow up with discover_prompts
using a short description of what you are about to do.

## LOADING PROMPTS

- list_available shows every builtin and custom prompt.
- load_prompts loads prompts by reference: "builtin:name", "custom:name",
  "file:/path", or a bare name (builtin first, then custom).
- compose_prompts merges several prompts into one block, removing
  duplicated paragraphs and trimming to a token budget when asked.
- estimate_context reports token counts before you commit to loading.

## SAVING PROMPTS

Use save_prompt to keep instructions worth reusing. Prefer file-backed
prompts for content that changes on disk; they re-read on every load.

## WORK TRACKING

The progress queue survives across sessions. Push items you cannot
finish now, pop the oldest when you have capacity, and mark sticky
items (importance > 0) complete explicitly. tool_dedup_guard flags
repeated tool calls; check it before re-running expensive operations.

## PROMPT FILES

load_prompt_file, list_prompt_files, and validate_prompts work over the
on-disk prompt library. After loading a prompt file, echo its emoji to
confirm the instructions are active.`
}
