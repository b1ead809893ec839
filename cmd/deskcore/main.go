// Package main runs the deskcore workspace CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"deskcore/internal/archive"
	"deskcore/internal/assist"
	"deskcore/internal/config"
	"deskcore/internal/core"
	infrablob "deskcore/internal/infra/blob"
	"deskcore/internal/infra/persistence/memory"
	"deskcore/internal/maildraft"
	"deskcore/internal/modules/checklist"
	"deskcore/internal/modules/note"
	"deskcore/pkg/domain"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, `usage: deskcore <command> [flags]

commands:
  create-checklist  -name <name> [-parent type:id]
  create-note       -text <text> [-parent type:id]
  add-item          -id <checklist-id> -text <text>
  list              -type checklist|note [-parent type:id]
  tree              -parent type:id
  associate         -parent type:id -child type:id
  disassociate      -parent type:id -child type:id
  delete            -id <id>
  prune
  export
  restore           -key <archive-key>
  archives
  suggest           -id <id>
  draft             -id <id>`)
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "load config:", err)
		return 1
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(stderr).Level(level).With().Timestamp().Logger()
	logger := core.NewZerologLogger(zl)

	store, closeStore, err := core.OpenPersistentStore(cfg.Storage)
	if err != nil {
		fmt.Fprintln(stderr, "open store:", err)
		return 1
	}
	defer func() { _ = closeStore() }()

	service := core.NewService(store, core.WithLogger(logger))
	checklists := checklist.NewAdapter(service)
	notes := note.NewAdapter(service)
	registry := core.NewRegistry()
	for _, entry := range []core.RegistryEntry{
		{Adapter: checklists, DefaultTitle: checklist.DefaultTitle},
		{Adapter: notes, DefaultTitle: note.DefaultTitle},
	} {
		if err := registry.Register(entry); err != nil {
			fmt.Fprintln(stderr, "register module:", err)
			return 1
		}
	}

	ctx := context.Background()
	command, rest := args[0], args[1:]
	switch command {
	case "create-checklist":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		name := fs.String("name", "", "checklist name")
		parentFlag := fs.String("parent", "", "parent context as type:id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		parent, err := parseContext(*parentFlag)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		id, err := checklist.Create(ctx, checklists, *name, parent)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, id)
	case "create-note":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		text := fs.String("text", "", "note text")
		parentFlag := fs.String("parent", "", "parent context as type:id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		parent, err := parseContext(*parentFlag)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		id, err := note.Create(ctx, notes, *text, parent)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, id)
	case "add-item":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		id := fs.String("id", "", "checklist id")
		text := fs.String("text", "", "item text")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if err := checklist.AddItem(ctx, checklists, *id, *text); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	case "list":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		typeFlag := fs.String("type", "", "module type")
		parentFlag := fs.String("parent", "", "parent context as type:id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		entry, ok := registry.Lookup(domain.ModuleType(*typeFlag))
		if !ok {
			fmt.Fprintf(stderr, "unknown module type %q\n", *typeFlag)
			return 2
		}
		parent, err := parseContext(*parentFlag)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		instances, err := entry.Adapter.List(ctx, parent)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		for _, m := range instances {
			fmt.Fprintf(stdout, "%s\t%s\n", m.ID, entry.Adapter.Title(m))
		}
	case "tree":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		parentFlag := fs.String("parent", "", "root context as type:id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		parent, err := parseContext(*parentFlag)
		if err != nil || parent == nil {
			fmt.Fprintln(stderr, "tree requires -parent type:id")
			return 2
		}
		composition, err := core.NewComposer(registry).Compose(ctx, *parent, nil)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		printComposition(stdout, composition, 0)
	case "associate", "disassociate":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		parentFlag := fs.String("parent", "", "parent context as type:id")
		childFlag := fs.String("child", "", "child as type:id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		parent, err := parseContext(*parentFlag)
		if err != nil || parent == nil {
			fmt.Fprintln(stderr, "requires -parent type:id")
			return 2
		}
		child, err := parseContext(*childFlag)
		if err != nil || child == nil {
			fmt.Fprintln(stderr, "requires -child type:id")
			return 2
		}
		if command == "associate" {
			_, err = service.Associate(ctx, *parent, child.Type, child.ID)
		} else {
			_, err = service.Disassociate(ctx, *parent, child.Type, child.ID)
		}
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	case "delete":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		id := fs.String("id", "", "module id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if _, err := service.DeleteModule(ctx, *id); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	case "prune":
		if _, err := service.PruneDangling(ctx); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	case "export", "restore", "archives":
		blobs, err := infrablob.Open(ctx, cfg.Blob)
		if err != nil {
			fmt.Fprintln(stderr, "open blob store:", err)
			return 1
		}
		archiver := archive.New(blobs)
		snapStore, ok := store.(interface {
			ExportState() memory.Snapshot
			ImportState(memory.Snapshot)
		})
		if !ok {
			fmt.Fprintln(stderr, "storage driver does not support archiving")
			return 1
		}
		switch command {
		case "export":
			key, err := archiver.Export(ctx, snapStore)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			fmt.Fprintln(stdout, key)
		case "restore":
			fs := flag.NewFlagSet(command, flag.ContinueOnError)
			key := fs.String("key", "", "archive key")
			if err := fs.Parse(rest); err != nil {
				return 2
			}
			if err := archiver.Restore(ctx, snapStore, *key); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		case "archives":
			keys, err := archiver.List(ctx)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			for _, key := range keys {
				fmt.Fprintln(stdout, key)
			}
		}
	case "suggest":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		id := fs.String("id", "", "module id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		m, ok := service.GetModule(*id)
		if !ok {
			fmt.Fprintf(stderr, "module %s not found\n", *id)
			return 1
		}
		var suggester assist.Suggester = assist.Static{}
		if cfg.Assist.OpenAIAPIKey != "" {
			suggester, err = assist.NewOpenAI(assist.OpenAIConfig{
				APIKey:       cfg.Assist.OpenAIAPIKey,
				Model:        cfg.Assist.OpenAIModel,
				ResponsesURL: strings.TrimSuffix(cfg.Assist.OpenAIBaseURL, "/") + "/responses",
			})
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		}
		suggestions, err := suggester.Suggest(ctx, m)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		for _, s := range suggestions {
			fmt.Fprintln(stdout, s)
		}
	case "draft":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		id := fs.String("id", "", "module id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		m, ok := service.GetModule(*id)
		if !ok {
			fmt.Fprintf(stderr, "module %s not found\n", *id)
			return 1
		}
		var draft maildraft.Draft
		if cfg.Maildraft.DraftURL != "" {
			drafter, err := maildraft.NewHTTP(maildraft.HTTPConfig{
				DraftURL:  cfg.Maildraft.DraftURL,
				AuthToken: cfg.Maildraft.AuthToken,
			})
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			if draft, err = drafter.Draft(ctx, m); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		} else if draft, err = maildraft.Render(m); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		out, err := json.MarshalIndent(draft, "", "  ")
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
	default:
		usage(stderr)
		return 2
	}
	return 0
}

func parseContext(s string) (*domain.Context, error) {
	if s == "" {
		return nil, nil
	}
	moduleType, id, found := strings.Cut(s, ":")
	if !found || moduleType == "" || id == "" {
		return nil, fmt.Errorf("invalid context %q, expected type:id", s)
	}
	return &domain.Context{Type: domain.ModuleType(moduleType), ID: id}, nil
}

func printComposition(w io.Writer, c core.Composition, depth int) {
	indent := strings.Repeat("  ", depth)
	switch c.State {
	case core.CompositionEmpty:
		if depth == 0 {
			fmt.Fprintln(w, indent+"(empty)")
		}
	case core.CompositionCycleDetected:
		fmt.Fprintln(w, indent+"(cycle)")
	case core.CompositionSettled:
		for _, section := range c.Sections {
			fmt.Fprintf(w, "%s%s:\n", indent, section.Title)
			for _, item := range section.Items {
				fmt.Fprintf(w, "%s- %s (%s)\n", indent, item.Title, item.Instance.ID)
				printComposition(w, item.Children, depth+1)
			}
		}
	}
}
