package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/jera/internal"
	"github.com/starford/jera/internal/bundle"
	"github.com/starford/jera/internal/index"
	"github.com/starford/jera/internal/mcpserver"
	"github.com/starford/jera/internal/postservice"
	"github.com/starford/jera/internal/storage"
	pkgconfig "github.com/starford/jera/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err == nil {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, nil
}

// buildService wires storage, index, and the post service for one-shot
// CLI commands. The caller must close the returned DB.
func buildService(cfg *internal.Config) (*postservice.Service, storage.Provider, *index.DB, error) {
	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create content dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init index: %w", err)
	}
	return postservice.NewService(store, db, cfg.Content.Layout()), store, db, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func newAction(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if title == "" {
		return cli.Exit("usage: jera new [--date YYYY-MM-DD] [--draft] [--tags a,b] <title>", 2)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, _, db, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	in := postservice.CreateInput{Title: title, Draft: cmd.Bool("draft")}
	if d := cmd.String("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			return cli.Exit("date must be YYYY-MM-DD", 2)
		}
		in.Date = parsed
	}
	for _, tag := range cmd.StringSlice("tags") {
		if tag = strings.TrimSpace(tag); tag != "" {
			in.Tags = append(in.Tags, tag)
		}
	}

	post, err := svc.CreatePost(ctx, in)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	fmt.Println(post.Path)
	return nil
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, _, db, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if p := cmd.Args().First(); p != "" {
		dir, err := svc.MigratePost(ctx, p)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", p, err)
		}
		fmt.Printf("%s -> %s\n", p, dir)
		return nil
	}

	migrated, skipped, err := svc.MigrateAll(ctx)
	if err != nil {
		return fmt.Errorf("migrate all: %w", err)
	}
	for _, dir := range migrated {
		fmt.Println(dir)
	}
	for _, e := range skipped {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", e)
	}
	return nil
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, _, db, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var reports []*bundle.Report
	if dir := cmd.Args().First(); dir != "" {
		rep, err := svc.CheckBundle(ctx, dir)
		if err != nil {
			return fmt.Errorf("check %s: %w", dir, err)
		}
		reports = append(reports, rep)
	} else {
		reports, err = svc.CheckAll(ctx)
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
	}

	violations := 0
	for _, rep := range reports {
		for _, is := range rep.Issues {
			violations++
			if is.Ref != "" {
				fmt.Printf("%s: %s: %s\n", is.Bundle, is.Kind, is.Ref)
			} else {
				fmt.Printf("%s: %s\n", is.Bundle, is.Kind)
			}
		}
	}
	if violations > 0 {
		return cli.Exit(fmt.Sprintf("%d integrity violation(s)", violations), 1)
	}
	fmt.Printf("checked %d bundle(s), no violations\n", len(reports))
	return nil
}

func mcpAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, store, db, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return mcpserver.New(svc, store).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:  "jera",
		Usage: "Page-bundle blog content manager: date-prefixed bundles, asset integrity, full-text search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API server with the file watcher",
				Action: serveAction,
			},
			{
				Name:      "new",
				Usage:     "Scaffold a new post bundle from a title",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "Publication date YYYY-MM-DD (defaults to today)"},
					&cli.BoolFlag{Name: "draft", Usage: "Mark the post as a draft"},
					&cli.StringSliceFlag{Name: "tags", Usage: "Tags for the post"},
				},
				Action: newAction,
			},
			{
				Name:      "migrate",
				Usage:     "Convert legacy flat posts into page bundles",
				ArgsUsage: "[path]",
				Action:    migrateAction,
			},
			{
				Name:      "check",
				Usage:     "Check asset-reference integrity (non-zero exit on violations)",
				ArgsUsage: "[bundle]",
				Action:    checkAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio for LLM integration",
				Action: mcpAction,
			},
		},
		Action: serveAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.ExitCode())
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
