package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/liftcoach/internal/mcp"
	"github.com/meltforce/liftcoach/internal/suggest"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "LiftCoach server URL (e.g. https://liftcoach.tail1234.ts.net)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftcoach-mcp", Version)
		return
	}

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftcoach-mcp -server <URL>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// stdout carries the protocol, so logs go to stderr
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	client := mcp.NewHTTPClient(*serverURL)
	srv := mcp.New(client, client, suggest.New(suggest.DefaultParams()), Version, log)

	log.Info("serving MCP over stdio", "server", *serverURL)
	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Error("stdio server failed", "error", err)
		os.Exit(1)
	}
}
