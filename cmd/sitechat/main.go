// sitechat - terminal support chat client
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avalier/sitechat/internal/config"
	"github.com/avalier/sitechat/internal/domain"
	"github.com/avalier/sitechat/internal/store"
	"github.com/avalier/sitechat/internal/widget"
)

func main() {
	reset := flag.Bool("reset", false, "forget the persisted visitor session and start over")
	flag.Parse()

	// Stdout is the chat surface; structured logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	sessionStore, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sessionStore.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *reset {
		if err := sessionStore.Clear(ctx); err != nil {
			slog.Error("Failed to clear session", "error", err)
			os.Exit(1)
		}
		fmt.Println("* Session cleared.")
	}

	w := widget.New(cfg, sessionStore)
	w.Log().SetNotify(render)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			w.Submit(scanner.Text())
		}
		stop()
	}()

	w.Run(ctx)
	fmt.Println("\nBye!")
}

// render prints one log entry; the right-aligned bubbles of the original
// widget become sender prefixes on a terminal.
func render(msg domain.ChatMessage) {
	switch msg.Origin {
	case domain.OriginLocal:
		fmt.Printf("you> %s\n", msg.Content)
	case domain.OriginRemote:
		fmt.Printf("%s> %s\n", msg.SenderName, msg.Content)
	default:
		fmt.Printf("* %s\n", msg.Content)
	}
}
