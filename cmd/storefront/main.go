package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/talkincode/storefront/config"
	"github.com/talkincode/storefront/internal/app"
	"github.com/talkincode/storefront/internal/mockapi"
	"github.com/talkincode/storefront/internal/web"
	"github.com/talkincode/storefront/internal/webserver"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Multi-page storefront and its mock resource server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront pages",
	RunE:  runServe,
}

var mockapiCmd = &cobra.Command{
	Use:   "mockapi",
	Short: "Serve the users and products resource server",
	RunE:  runMockapi,
}

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Drop and recreate the resource server tables",
	RunE:  runInitdb,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default storefront.yml)")
	rootCmd.AddCommand(serveCmd, mockapiCmd, initdbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and installs the logger
func setup() (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	application := app.NewApplication(cfg)
	application.Init(cfg)
	return application, nil
}

// run serves s until SIGINT or SIGTERM
func run(s *webserver.WebServer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zap.L().Info("shutting down", zap.String("addr", s.Addr()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := setup()
	if err != nil {
		return err
	}
	defer application.Release()
	if err := application.InitStorefront(); err != nil {
		return err
	}

	cfg := application.Config().Web
	handler := web.NewHandler(web.Options{
		Sessions:     application.Sessions(),
		Adapters:     application.Adapters(),
		Encoder:      application.Encoder(),
		Secret:       cfg.Secret,
		SubmitDelay:  cfg.SubmitDelay,
		MaxUpload:    cfg.MaxUpload,
		PollInterval: cfg.PollInterval,
	})
	s := webserver.NewWebServer(cfg.Host, cfg.Port)
	if err := handler.Register(s); err != nil {
		return err
	}
	return run(s)
}

func runMockapi(cmd *cobra.Command, args []string) error {
	application, err := setup()
	if err != nil {
		return err
	}
	defer application.Release()
	if err := application.InitMockapi(); err != nil {
		return err
	}

	cfg := application.Config().Mockapi
	s := webserver.NewWebServer(cfg.Host, cfg.Port)
	mockapi.Register(s, application.DB())
	return run(s)
}

func runInitdb(cmd *cobra.Command, args []string) error {
	application, err := setup()
	if err != nil {
		return err
	}
	defer application.Release()
	if err := application.InitMockapi(); err != nil {
		return err
	}
	application.InitDb()
	zap.L().Info("resource tables recreated")
	return nil
}
