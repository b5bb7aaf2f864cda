package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/himanishpuri/RadioDNA/internal/classifier"
	"github.com/himanishpuri/RadioDNA/internal/oracle"
	"github.com/himanishpuri/RadioDNA/internal/playlist"
	"github.com/himanishpuri/RadioDNA/internal/service"
	"github.com/himanishpuri/RadioDNA/internal/storage"
	"github.com/himanishpuri/RadioDNA/internal/tracker"
	"github.com/himanishpuri/RadioDNA/pkg/logger"
)

const envPrefix = "RADIODNA"

var configFile string

// appConfig is the resolved configuration of one invocation.
type appConfig struct {
	DBPath          string
	OracleURL       string
	OracleAPIKey    string
	MinConfidence   float64
	OracleTimeout   time.Duration
	HTTPTimeout     time.Duration
	TrackerPolicy   string
	TrackerCapacity int
	LogLevel        string
	Listen          string
	Origins         []string
}

// rootCmd watches a stream when given its playlist URL
var rootCmd = &cobra.Command{
	Use:   "radiodna <stream-url>",
	Short: "Catalog every distinct track played on an HLS radio stream",
	Long: `RadioDNA polls a live HLS radio playlist, classifies each new segment from
its embedded metadata, asks a fingerprint oracle whether the audio has been
heard before and records either a repeat sighting or a new catalog entry.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log_level"))
	},
	RunE: runWatch,
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default is ./radiodna.yaml or $HOME/.config/radiodna/radiodna.yaml)")
	pf.String("db", storage.DefaultDBFile, "path to the SQLite catalog")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	f := rootCmd.Flags()
	f.String("oracle-url", "", "base URL of the fingerprint oracle")
	f.String("oracle-api-key", "", "API key for the fingerprint oracle")
	f.Float64("min-confidence", service.DefaultMinConfidence, "confidence floor for oracle queries")
	f.Duration("oracle-timeout", oracle.DefaultTimeout, "timeout of one oracle call")
	f.Duration("http-timeout", playlist.DefaultTimeout, "timeout of one playlist or segment request")
	f.String("tracker", string(tracker.KindSequence), "new-segment policy (sequence, recency)")
	f.Int("tracker-capacity", tracker.DefaultCapacity, "remembered URIs for the recency policy")

	bindFlags(viper.GetViper(), pf, map[string]string{
		"db":        "db",
		"log-level": "log_level",
	})
	bindFlags(viper.GetViper(), f, map[string]string{
		"oracle-url":       "oracle.url",
		"oracle-api-key":   "oracle.api_key",
		"min-confidence":   "oracle.min_confidence",
		"oracle-timeout":   "oracle.timeout",
		"http-timeout":     "http.timeout",
		"tracker":          "tracker.policy",
		"tracker-capacity": "tracker.capacity",
	})
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	v := viper.GetViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/radiodna")
		}
		v.SetConfigName("radiodna")
		v.SetConfigType("yaml")
	}

	configureEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err == nil {
		logger.Debugf("Using config file: %s", v.ConfigFileUsed())
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "error reading config %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// configureEnv maps keys such as oracle.url to RADIODNA_ORACLE_URL
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// bindFlags binds each flag to its viper key
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("db", storage.DefaultDBFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", ":8080")

	v.SetDefault("oracle.url", "")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.min_confidence", service.DefaultMinConfidence)
	v.SetDefault("oracle.timeout", oracle.DefaultTimeout)

	v.SetDefault("http.timeout", playlist.DefaultTimeout)
	v.SetDefault("http.origins", []string{"*"})

	v.SetDefault("tracker.policy", string(tracker.KindSequence))
	v.SetDefault("tracker.capacity", tracker.DefaultCapacity)
}

func loadConfig(v *viper.Viper) appConfig {
	return appConfig{
		DBPath:          v.GetString("db"),
		OracleURL:       v.GetString("oracle.url"),
		OracleAPIKey:    v.GetString("oracle.api_key"),
		MinConfidence:   v.GetFloat64("oracle.min_confidence"),
		OracleTimeout:   v.GetDuration("oracle.timeout"),
		HTTPTimeout:     v.GetDuration("http.timeout"),
		TrackerPolicy:   v.GetString("tracker.policy"),
		TrackerCapacity: v.GetInt("tracker.capacity"),
		LogLevel:        v.GetString("log_level"),
		Listen:          v.GetString("listen"),
		Origins:         splitList(v.GetStringSlice("http.origins")),
	}
}

// splitList accepts both repeated values and a single comma separated one,
// as RADIODNA_HTTP_ORIGINS arrives
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func setupLogging(level string) error {
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

func openCatalog(cfg appConfig) (*storage.DBClient, error) {
	db, err := storage.NewDBClient(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", cfg.DBPath, err)
	}
	return db, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(viper.GetViper())
	log := logger.GetLogger()

	if cfg.OracleURL == "" {
		return fmt.Errorf("oracle URL is required (--oracle-url or %s_ORACLE_URL)", envPrefix)
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return fmt.Errorf("min confidence %v outside [0,1]", cfg.MinConfidence)
	}

	policy, err := tracker.New(tracker.Kind(cfg.TrackerPolicy), cfg.TrackerCapacity)
	if err != nil {
		return err
	}

	db, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewIntakeService(
		playlist.NewFetcher(playlist.WithTimeout(cfg.HTTPTimeout)),
		oracle.NewClient(cfg.OracleURL,
			oracle.WithAPIKey(cfg.OracleAPIKey),
			oracle.WithTimeout(cfg.OracleTimeout),
		),
		db,
		policy,
		classifier.New(),
		service.WithLogger(log),
		service.WithMinConfidence(cfg.MinConfidence),
	)

	ctx, stop := signalContext()
	defer stop()

	log.Infof("Watching %s (tracker=%s, catalog=%s)", args[0], cfg.TrackerPolicy, cfg.DBPath)
	return svc.Run(ctx, args[0])
}
