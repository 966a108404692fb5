// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/wingedpig/lattice/internal/app"
	"github.com/wingedpig/lattice/internal/config"
)

var (
	version = "0.31"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Parse flags
	var (
		configPath  string
		host        string
		port        int
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "Query API host (overrides config)")
	flag.IntVar(&port, "port", 0, "Query API port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("lattice %s\n", version)
		os.Exit(0)
	}

	// Find config file if not specified; run on defaults without one
	if configPath == "" {
		loader := config.NewLoader()
		if found, err := loader.FindConfig(); err == nil {
			configPath = found
		} else {
			log.Printf("No config file found, using defaults")
		}
	}

	if configPath != "" {
		log.Printf("Using config: %s", configPath)
	}

	// Create and run app
	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runInit handles the "lattice init" command
func runInit() error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(os.Args[2:])

	if *showHelp {
		fmt.Println(`Usage: lattice init [options]

Create a new lattice.hjson configuration file in the current directory.

This command walks you through setting up a Lattice configuration with
interactive prompts. The generated file is commented to help you
customize the available options.

Options:
  -h, -help    Show this help message

The command will ask about:
  - Application name (determines the port file location)
  - The backend's main module
  - The task runner used to launch it (defaults to uv)

Examples:
  lattice init              Create config with interactive prompts
  cd myproject && lattice init

After running init:
  1. Review and edit lattice.hjson as needed
  2. Run: ./lattice`)
		return nil
	}

	configFile := "lattice.hjson"

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Lattice Configuration Setup")
	fmt.Println("============================")
	fmt.Println()
	fmt.Println("This will create a lattice.hjson configuration file in the current directory.")
	fmt.Println("Press Enter to accept defaults shown in [brackets].")
	fmt.Println()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	defaultName := filepath.Base(cwd)

	appName := prompt(reader, "Application name", defaultName)
	mainModule := prompt(reader, "Backend main module", "server.main")
	runner := prompt(reader, "Task runner", "uv")

	configContent := generateConfig(appName, mainModule, runner)

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit lattice.hjson as needed")
	fmt.Println("  2. Run: ./lattice")
	fmt.Println()

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func generateConfig(appName, mainModule, runner string) string {
	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // Lattice Configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).

  // ---------------------------------------------------------------------------
  // Application Identity
  // ---------------------------------------------------------------------------
  app: {
    // Determines the per-user config directory the backend's port file
    // lives under (<config-dir>/<name>/backend.port)
    name: "`)
	sb.WriteString(escapeHJSONValue(appName))
	sb.WriteString(`"
  }

  // ---------------------------------------------------------------------------
  // Backend
  // ---------------------------------------------------------------------------
  backend: {
    // Task runner used to launch backend modules
    runner: "`)
	sb.WriteString(escapeHJSONValue(runner))
	sb.WriteString(`"

    // Long-running server module, launched as "<runner> run -m <module>"
    main_module: "`)
	sb.WriteString(escapeHJSONValue(mainModule))
	sb.WriteString(`"

    // Run a module to completion before the server starts (schema setup etc.)
    // initdb_module: "server.initdb"

    // Pass an env file to the runner ("--env-file <path>")
    // env_file: ".env"

    // Explicit backend working directory. When unset, Lattice looks for
    // <resource_root>/backend, then walks up from resource_root looking
    // for the marker directory.
    // path: "/opt/myapp/backend"
    // resource_root: ""
    // marker: "python"

    // Extra environment for spawned workers
    // env: {
    //   LOG_LEVEL: "debug"
    // }

    // Port discovery window and poll interval
    // port_timeout: "30s"
    // port_poll: "100ms"

    // Grace window between the exit request and the hard kill
    // stop_grace: "3s"

    // Where worker logs accumulate (default: user cache dir)
    // log_dir: ""

    // In-memory log tail capacity per worker
    // log_tail_size: 1000
  }

  // ---------------------------------------------------------------------------
  // Query API
  // ---------------------------------------------------------------------------
  server: {
    // Host to bind to (the UI layer connects here)
    host: "127.0.0.1"
    port: 4820
  }

  // ---------------------------------------------------------------------------
  // Events
  // ---------------------------------------------------------------------------
  // events: {
  //   history: {
  //     max_events: 10000
  //     max_age: "1h"
  //   }
  // }
}
`)

	return sb.String()
}
