package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/inkpost/inkpost/internal/auth"
	"github.com/inkpost/inkpost/internal/client"
	"github.com/inkpost/inkpost/internal/config"
	httpapp "github.com/inkpost/inkpost/internal/http"
	"github.com/inkpost/inkpost/internal/logging"
	"github.com/inkpost/inkpost/internal/rate"
	"github.com/inkpost/inkpost/internal/store/open"
	"github.com/inkpost/inkpost/internal/upload"
)

const version = "v0.1.0"

// CLIConfig holds the CLI client session persisted to disk.
type CLIConfig struct {
	BaseURL  string `json:"base_url"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	UserID   string `json:"user_id"`
	Token    string `json:"token"`
	TokenExp string `json:"token_expires"`
}

func main() {
	app := &cli.App{
		Name:    "inkpost",
		Usage:   "Blog API server and command-line client",
		Version: version,
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server"},
				Usage:   "Start the API server (default if no command)",
				Action:  runServer,
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *cli.Context) error {
					fmt.Println("inkpost " + version)
					return nil
				},
			},
			{
				Name:  "register",
				Usage: "Create an account and log in",
				Flags: []cli.Flag{
					urlFlag(),
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"INKPOST_PASSWORD"}},
				},
				Action: cmdRegister,
			},
			{
				Name:    "login",
				Aliases: []string{"auth"},
				Usage:   "Log in and store the token",
				Flags: []cli.Flag{
					urlFlag(),
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"INKPOST_PASSWORD"}},
				},
				Action: cmdLogin,
			},
			{
				Name:  "post",
				Usage: "Publish a post",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "category", Value: "Uncategorized"},
					&cli.StringFlag{Name: "text", Required: true, Usage: "Post body"},
					&cli.PathFlag{Name: "thumbnail", Required: true, Usage: "Image file, at most 2MB"},
				},
				Action: cmdPost,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete one of your posts",
				Flags:   []cli.Flag{&cli.StringFlag{Name: "post", Required: true}},
				Action:  cmdDelete,
			},
			{
				Name:    "read",
				Aliases: []string{"list"},
				Usage:   "List posts",
				Flags: []cli.Flag{
					urlFlag(),
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "author", Usage: "User ID"},
					&cli.StringFlag{Name: "post", Usage: "Show a single post"},
				},
				Action: cmdRead,
			},
			{
				Name:    "status",
				Aliases: []string{"whoami"},
				Usage:   "Show the stored session",
				Action:  cmdStatus,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func urlFlag() cli.Flag {
	return &cli.StringFlag{Name: "url", Value: "http://localhost:8000", Usage: "Inkpost server URL", EnvVars: []string{"INKPOST_URL"}}
}

// ============================================================================
// SERVER
// ============================================================================

func runServer(c *cli.Context) error {
	dotenv := config.LoadDotenv()
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if dotenv != "" {
		logger.Debug().Str("path", dotenv).Msg("loaded .env")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit("refusing to start: "+err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := open.Open(openCtx, cfg.DatabaseURL, cfg.MongoDB)
	cancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	intake, err := upload.New(cfg.UploadsDir, logger)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(cfg.JWTSecret, nil)
	server := httpapp.NewServer(st, authSvc, intake, rate.NewMemory(), cfg, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("store", open.Backend(cfg.DatabaseURL)).
			Str("uploads", intake.Dir()).
			Msg("inkpost listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	return httpServer.Shutdown(shutdownCtx)
}

// ============================================================================
// CLIENT COMMANDS
// ============================================================================

func cmdRegister(c *cli.Context) error {
	api := client.New(c.String("url"))
	user, err := api.Register(c.String("name"), c.String("email"), c.String("password"))
	if err != nil {
		return err
	}
	fmt.Printf("✓ Registered '%s' <%s>\n", user.Name, user.Email)
	return login(api, c.String("email"), c.String("password"))
}

func cmdLogin(c *cli.Context) error {
	return login(client.New(c.String("url")), c.String("email"), c.String("password"))
}

func login(api *client.Client, email, password string) error {
	if err := api.Login(email, password); err != nil {
		return err
	}
	cfg := CLIConfig{
		BaseURL:  api.BaseURL,
		Email:    email,
		Name:     api.Name,
		UserID:   api.UserID,
		Token:    api.Token,
		TokenExp: api.TokenExp.Format(time.RFC3339),
	}
	if err := saveCLIConfig(cfg); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Printf("✓ Logged in as '%s' (expires %s)\n", cfg.Name, cfg.TokenExp)
	return nil
}

func cmdPost(c *cli.Context) error {
	api, err := loadAuthenticatedClient()
	if err != nil {
		return err
	}
	path := c.Path("thumbnail")
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	post, err := api.CreatePost(client.PostInput{
		Title:       c.String("title"),
		Category:    c.String("category"),
		Description: c.String("text"),
		Thumbnail:   &client.Image{Name: filepath.Base(path), Data: f},
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Posted: %s\n", post.Title)
	fmt.Printf("  ID: %s\n", post.ID)
	return nil
}

func cmdDelete(c *cli.Context) error {
	api, err := loadAuthenticatedClient()
	if err != nil {
		return err
	}
	msg, err := api.DeletePost(c.String("post"))
	if err != nil {
		return err
	}
	fmt.Println("✓ " + msg)
	return nil
}

func cmdRead(c *cli.Context) error {
	baseURL := c.String("url")
	if !c.IsSet("url") {
		if cfg, err := loadCLIConfig(); err == nil && cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
	}
	api := client.New(baseURL)

	if id := c.String("post"); id != "" {
		post, err := api.GetPost(id)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n", post.Title)
		fmt.Printf("  %s | by %s | updated %s\n", post.Category, post.Creator, post.UpdatedAt.Format(time.RFC822))
		fmt.Printf("\n  %s\n", post.Description)
		return nil
	}

	var (
		posts []client.Post
		err   error
	)
	switch {
	case c.String("category") != "":
		posts, err = api.ListCategoryPosts(c.String("category"))
	case c.String("author") != "":
		posts, err = api.ListUserPosts(c.String("author"))
	default:
		posts, err = api.ListPosts()
	}
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("No posts found")
		return nil
	}
	for i, p := range posts {
		fmt.Printf("%d. %s\n", i+1, p.Title)
		fmt.Printf("   %s | by %s | #%s\n\n", p.Category, p.Creator, p.ID)
	}
	return nil
}

func cmdStatus(c *cli.Context) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		fmt.Println("Status: Not logged in")
		fmt.Println("\nRun: inkpost login --email <email> --password <password>")
		return nil
	}
	fmt.Printf("User:   %s <%s>\n", cfg.Name, cfg.Email)
	fmt.Printf("Server: %s\n", cfg.BaseURL)

	exp, _ := time.Parse(time.RFC3339, cfg.TokenExp)
	if cfg.Token == "" || time.Now().After(exp) {
		fmt.Println("Token:  Expired")
		fmt.Println("\nRun: inkpost login")
		return nil
	}
	fmt.Printf("Token:  Valid until %s\n", cfg.TokenExp)
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func cliConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".inkpost", "config.json")
}

func loadCLIConfig() (CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return CLIConfig{}, errors.New("not logged in - run 'inkpost login'")
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func saveCLIConfig(cfg CLIConfig) error {
	path := cliConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	return os.WriteFile(path, data, 0600)
}

func loadAuthenticatedClient() (*client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	exp, _ := time.Parse(time.RFC3339, cfg.TokenExp)
	if cfg.Token == "" || time.Now().After(exp) {
		return nil, errors.New("token expired - run 'inkpost login'")
	}
	api := client.New(cfg.BaseURL)
	api.Token = cfg.Token
	api.TokenExp = exp
	api.UserID = cfg.UserID
	api.Name = cfg.Name
	return api, nil
}
