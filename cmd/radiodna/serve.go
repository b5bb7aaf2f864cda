package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/himanishpuri/RadioDNA/internal/api"
	"github.com/himanishpuri/RadioDNA/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(viper.GetViper())

		db, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		srv := api.NewServer(db, api.ServerConfig{
			Addr:           cfg.Listen,
			DBPath:         cfg.DBPath,
			AllowedOrigins: cfg.Origins,
		}, logger.GetLogger().With("[api]"))

		ctx, stop := signalContext()
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "address to listen on")
	serveCmd.Flags().StringSlice("origins", []string{"*"}, "allowed CORS origins")
	bindFlags(viper.GetViper(), serveCmd.Flags(), map[string]string{
		"listen":  "listen",
		"origins": "http.origins",
	})
	rootCmd.AddCommand(serveCmd)
}
