package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hourglass/internal/app"
	"hourglass/internal/config"
	"hourglass/internal/db"
	"hourglass/internal/engine"
	"hourglass/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "hg",
	Short: "Hourglass CLI",
	Long: `Hourglass tracks day, month and year objectives and bills project hours.
- Objectives carry forward: an unfinished objective stays visible in later periods until it is completed or scratched.
- Projects own a ledger of invoice lines; tasks hang off projects, objectives off tasks, work entries off objectives.
- Billing compares executed hours (work entries) with billed hours and amounts (ledger lines), for the month and in total.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return app.LoadEnv(workspace)
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("HOURGLASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user-id", "local-user", "acting user id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(objectivesCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(billingCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(invoiceCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(objectiveCmd())
	rootCmd.AddCommand(workCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	var secret string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default hourglass.yml and a JWT secret into .env",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			cfg := config.Default()
			if secret == "" && os.Getenv(cfg.Auth.JWTSecretEnv) == "" {
				generated, err := randomSecret()
				if err != nil {
					return err
				}
				secret = generated
			}
			if secret != "" {
				if err := app.SetEnvValue(workspace, cfg.Auth.JWTSecretEnv, secret); err != nil {
					return err
				}
			}
			ws, err := app.Open(cmd.Context(), workspace)
			if err != nil {
				return err
			}
			defer ws.Close()
			fmt.Printf("Initialized hourglass workspace in %s\n", workspace)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "jwt-secret", "", "JWT signing secret to store in .env (generated when empty)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Open(cmd.Context(), viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer ws.Close()
			cfg := ws.Config
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") {
				basePath = cfg.Server.BasePath
			}
			authCfg := server.AuthConfig{
				JWTSecret:        os.Getenv(cfg.Auth.JWTSecretEnv),
				AllowDevIdentity: cfg.Server.AllowDevIdentity,
				Logger:           ws.Logger,
			}
			if authCfg.JWTSecret == "" && !authCfg.AllowDevIdentity {
				return fmt.Errorf("%s is required for bearer auth", cfg.Auth.JWTSecretEnv)
			}
			handler, err := server.New(server.Config{Engine: ws.Engine, BasePath: basePath, Auth: authCfg, Logger: ws.Logger})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			ws.Logger.Info("serving hourglass api", "addr", addr, "base_path", basePath, "docs", "/docs")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path (defaults to server.base_path)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	ws, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws.Engine)
}

func userID() string {
	return viper.GetString("user-id")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
