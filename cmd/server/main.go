package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/annel0/voxelmem/internal/app"
	"github.com/annel0/voxelmem/internal/auth"
	"github.com/annel0/voxelmem/internal/config"
	"github.com/annel0/voxelmem/internal/logging"
)

var (
	configPath  string
	withConsole bool

	tokenSubject string
	tokenWrite   bool
	tokenTTL     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "voxelmem-server",
	Short: "Байтовая память поверх сетки вокселей",
	Long: `voxelmem-server держит мир с регионами памяти и отдаёт их через HTTP-шлюз
(get_block, set_block, read_chunk, write_chunk). С флагом --console команды
оператора читаются со стандартного ввода.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Выпустить JWT для шлюза по секрету из конфигурации",
	RunE:  runToken,
}

var secretCmd = &cobra.Command{
	Use:   "gen-secret",
	Short: "Сгенерировать секрет для auth.jwt_secret",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), auth.GenerateSecureSecret())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к YAML конфигурации (или $"+config.ConfigEnv+")")
	rootCmd.Flags().BoolVar(&withConsole, "console", false, "читать команды оператора со стандартного ввода")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "memctl", "субъект токена")
	tokenCmd.Flags().BoolVar(&tokenWrite, "write", false, "разрешить изменяющие запросы")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "срок действия (по умолчанию auth.token_ttl_hours)")

	rootCmd.AddCommand(tokenCmd, secretCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := app.ConfigureLogging(cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("Запуск voxelmem: порт %d, высота %d..%d, хранилище %s",
		cfg.Server.GetHTTPPort(), cfg.World.MinY, cfg.World.MaxY, cfg.Storage.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := app.Options{}
	if withConsole {
		opts.Console = cmd.OutOrStdout()
	}
	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		logging.Error("Ошибка запуска: %v", err)
		return err
	}

	if c := a.Console(); c != nil {
		go func() {
			if err := c.Run(ctx, cmd.InOrStdin()); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("Консоль остановлена: %v", err)
			}
		}()
	}

	runErr := a.Run(ctx)
	if runErr != nil {
		logging.Error("Ошибка HTTP-шлюза: %v", runErr)
	}
	logging.Info("Получен сигнал завершения, сохраняем регионы...")

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logging.Error("Ошибка остановки: %v", err)
		return errors.Join(runErr, err)
	}
	return runErr
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret не задан, выполните gen-secret")
	}
	signer, err := auth.NewSigner(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	ttl := tokenTTL
	if ttl <= 0 {
		ttl = time.Duration(cfg.Auth.TokenTTL) * time.Hour
	}
	token, err := signer.GenerateJWT(tokenSubject, tokenWrite, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
