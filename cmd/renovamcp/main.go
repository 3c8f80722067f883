// renovamcp serves the project database over MCP stdio, for AI agents
// running on the operator's machine.
//
//	renovamcp          run the stdio server
//	renovamcp install  register the binary in detected MCP client configs
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/igoryan-dao/renovabot/internal/ai"
	"github.com/igoryan-dao/renovabot/internal/cache"
	"github.com/igoryan-dao/renovabot/internal/config"
	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/install"
	"github.com/igoryan-dao/renovabot/internal/mcptools"
	"github.com/igoryan-dao/renovabot/internal/rag"
	"github.com/igoryan-dao/renovabot/internal/repo"
	"github.com/igoryan-dao/renovabot/internal/skills"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "install" {
		runInstall()
		return
	}

	// stdout is the MCP transport; the default logger writes to stderr.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	gdb, err := db.Open(cfg.DatabaseDSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	r := repo.New(gdb)

	var ragSvc *rag.Service
	if cfg.AIConfigured() {
		aiClient, err := ai.New(cfg)
		if err != nil {
			log.Fatalf("create AI client: %v", err)
		}
		sk := skills.NewManager("skills")
		if err := sk.Load(); err != nil {
			log.Printf("load skills: %v", err)
		}
		ragSvc = rag.NewService(r, aiClient, cache.New(gdb), sk)
	}

	srv := mcptools.NewServer(r, ragSvc)
	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("mcp server: %v", err)
	}
}

// runInstall writes the current database env into every detected MCP
// client config so the spawned server can reach the same Postgres.
func runInstall() {
	executable, err := os.Executable()
	if err != nil {
		log.Fatalf("resolve executable path: %v", err)
	}

	env := map[string]string{}
	for _, key := range []string{
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER",
		"POSTGRES_PASSWORD", "POSTGRES_DB",
	} {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}

	if err := install.Install(executable, env); err != nil {
		log.Fatalf("install: %v", err)
	}
	fmt.Println("Restart your IDE or AI CLI to pick up the new server.")
}
