package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"counsellor/internal/ai"
	"counsellor/internal/config"
	"counsellor/internal/db"
	"counsellor/internal/engine"
	"counsellor/internal/migrate"
	"counsellor/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "counsellor",
	Short: "Counsellor CLI",
	Long: `Counsellor is a stage-gated AI study-abroad advisor.
Students onboard, discover scored universities, shortlist and lock choices,
and chat with a model-backed counsellor that can take bounded actions on
their behalf. The chat pipeline falls back across providers and degrades
to a safe retry reply when every provider fails.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("COUNSELLOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(warmupCmd())
	rootCmd.AddCommand(universitiesCmd())
	rootCmd.AddCommand(tokenCmd())
}

// loadConfig reads counsellor.yml and layers COUNSELLOR_* env overrides
// for the secrets that should not live in the file.
func loadConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if v := viper.GetString("jwt_secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("gemini_api_key"); v != "" {
		cfg.AI.Gemini.APIKey = v
	}
	if v := viper.GetString("groq_api_key"); v != "" {
		cfg.AI.Groq.APIKey = v
	}
	if v := viper.GetString("openrouter_api_key"); v != "" {
		cfg.AI.OpenRouter.APIKey = v
	}
	if v := viper.GetString("perplexity_api_key"); v != "" {
		cfg.AI.Perplexity.APIKey = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg, ai.NewRouter(cfg)))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default counsellor.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("migrated", db.Path(workspace))
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the university catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.SeedUniversities(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("seeded %d universities\n", n)
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := loadConfig(workspace)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret (or COUNSELLOR_JWT_SECRET) is required")
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(conn, cfg, ai.NewRouter(cfg))
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: cfg.Server.BasePath,
				Auth: server.AuthConfig{
					JWTSecret:       cfg.Auth.JWTSecret,
					TokenTTLMinutes: cfg.Auth.TokenTTLMinutes,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Counsellor API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	return cmd
}

func warmupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Fire a throwaway model call to warm providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				e.Warmup(ctx)
				fmt.Println("warmup done")
				return nil
			})
		},
	}
}

func universitiesCmd() *cobra.Command {
	uni := &cobra.Command{Use: "universities", Short: "Inspect the catalog"}
	uni.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List universities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListUniversities(ctx, nil)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"ID", "Name", "Country", "Cost/yr USD", "Min GPA", "Difficulty"})
				for _, u := range items {
					minGPA := "-"
					if u.MinGPA != nil {
						minGPA = fmt.Sprintf("%.1f", *u.MinGPA)
					}
					t.AppendRow(table.Row{u.ID, u.Name, u.Country, u.YearlyCostUSD, minGPA, u.Difficulty})
				}
				t.Render()
				return nil
			})
		},
	})
	return uni
}

// tokenCmd mints a dev JWT for a user id, handy for curl against serve.
func tokenCmd() *cobra.Command {
	var userID string
	var ttlMinutes int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a dev bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user required")
			}
			cfg, err := loadConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret (or COUNSELLOR_JWT_SECRET) is required")
			}
			now := time.Now()
			claims := jwt.RegisteredClaims{
				Subject:   userID,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.JWTSecret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id for the token subject")
	cmd.Flags().IntVar(&ttlMinutes, "ttl", 60, "token lifetime in minutes")
	return cmd
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
