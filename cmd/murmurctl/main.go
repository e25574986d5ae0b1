package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/matheus3301/murmur/internal/assistant"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/config"
	"github.com/matheus3301/murmur/internal/demo"
	"github.com/matheus3301/murmur/internal/llm"
	"github.com/matheus3301/murmur/internal/lock"
	"github.com/matheus3301/murmur/internal/session"
	"github.com/matheus3301/murmur/internal/store"
	"go.uber.org/zap"
)

type env struct {
	cfg     *config.Config
	profile string
	layout  session.Layout
	json    bool
}

func main() {
	configFlag := flag.String("config", "", "config file (default $MURMUR_HOME/config.toml)")
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	dataDirFlag := flag.String("data-dir", "", "profile data directory (overrides the profile location)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	e, err := resolveEnv(*configFlag, *profileFlag, *dataDirFlag)
	if err != nil {
		fail(err)
	}
	e.json = *jsonFlag

	switch args[0] {
	case "login":
		err = cmdLogin(e, args[1:])
	case "logout":
		err = cmdLogout(e)
	case "whoami":
		err = cmdWhoami(e)
	case "conversations":
		err = cmdConversations(e)
	case "ask":
		err = cmdAsk(e, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: murmurctl [--config path] [--profile name] [--data-dir dir] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  login --name N --email E   Sign in to the profile")
	fmt.Fprintln(os.Stderr, "  logout                     Sign out of the profile")
	fmt.Fprintln(os.Stderr, "  whoami                     Show the signed-in identity")
	fmt.Fprintln(os.Stderr, "  conversations              List stored conversations")
	fmt.Fprintln(os.Stderr, "  ask [--max-tokens N] <prompt...>")
	fmt.Fprintln(os.Stderr, "                             Stream a completion from the server")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func resolveEnv(configPath, profileFlag, dataDir string) (*env, error) {
	if configPath == "" {
		configPath = session.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	profile := session.Resolve(profileFlag, cfg)
	if err := session.ValidateName(profile); err != nil {
		return nil, err
	}
	layout := session.ForProfile(profile)
	if dataDir != "" {
		layout = session.Layout{Dir: dataDir}
	}
	return &env{cfg: cfg, profile: profile, layout: layout}, nil
}

func (e *env) openDB() (*store.DB, error) {
	if err := e.layout.EnsureDir(); err != nil {
		return nil, fmt.Errorf("prepare profile dir: %w", err)
	}
	db, err := store.Open(e.layout.DBPath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// withSession runs fn holding the profile lock, so a running client never
// sees its identity change underneath it.
func (e *env) withSession(fn func(s *session.Session) error) error {
	lk, err := lock.Acquire(e.layout.Dir)
	if err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			return fmt.Errorf("profile %q is open in another client; quit it first: %w", e.profile, err)
		}
		return err
	}
	defer func() { _ = lk.Release() }()

	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(session.New(db))
}

func cmdLogin(e *env, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	name := fs.String("name", "", "display name (default: email local part)")
	email := fs.String("email", "", "email address")
	_ = fs.Parse(args)
	if *email == "" {
		return errors.New("usage: murmurctl login --name N --email E")
	}

	return e.withSession(func(s *session.Session) error {
		u, err := s.Begin(*name, *email)
		if err != nil {
			return err
		}
		if e.json {
			outputJSON(u)
			return nil
		}
		fmt.Printf("Signed in as %s <%s> on profile %s\n", u.Name, u.Email, e.profile)
		return nil
	})
}

func cmdLogout(e *env) error {
	return e.withSession(func(s *session.Session) error {
		if err := s.End(); err != nil {
			return err
		}
		fmt.Printf("Signed out of profile %s\n", e.profile)
		return nil
	})
}

func cmdWhoami(e *env) error {
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	u, err := session.New(db).Load()
	if errors.Is(err, chat.ErrNoSession) {
		fmt.Println("Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}
	if e.json {
		outputJSON(u)
		return nil
	}
	fmt.Printf("Profile: %s\n", e.profile)
	fmt.Printf("Name:    %s\n", u.Name)
	fmt.Printf("Email:   %s\n", u.Email)
	fmt.Printf("ID:      %s\n", u.ID)
	return nil
}

func cmdConversations(e *env) error {
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	convs, err := db.ListConversations()
	if err != nil {
		return err
	}
	if e.json {
		outputJSON(convs)
		return nil
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	for _, c := range convs {
		unread := ""
		if c.Unread > 0 {
			unread = fmt.Sprintf("(%d)", c.Unread)
		}
		fmt.Printf("%-24s %-5s %-6s %s\n", c.User.Name, unread, demo.FormatTime(c.LastMessage.Timestamp), oneLine(c.LastMessage.Text, 60))
	}
	return nil
}

func cmdAsk(e *env, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	maxTokens := fs.Int("max-tokens", 0, "completion token limit (server default when 0)")
	timeout := fs.Duration("timeout", 2*time.Minute, "request timeout")
	_ = fs.Parse(args)

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return errors.New("usage: murmurctl ask [--max-tokens N] <prompt...>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c := assistant.New(e.cfg.ServerURL, zap.NewNop())
	err := c.Complete(ctx, assistant.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens: *maxTokens,
	}, os.Stdout)
	fmt.Println()
	return err
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
