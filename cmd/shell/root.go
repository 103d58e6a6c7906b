package shell

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ValentinKolb/gStore/cmd/util"
	"github.com/ValentinKolb/gStore/lib/common"
	"github.com/ValentinKolb/gStore/lib/registry"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var plog = logger.GetLogger("shell")

var (
	shellCmdConfig = &common.ShellConfig{}
	ShellCmd       = &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive registry shell",
		Long: `Start an interactive shell on a fresh registry. Values are written as JSON and every
subscription prints the updates it receives. The configuration can be set via command
line flags or environment variables. The format of the environment variables is
GSTORE_<flag> (e.g. GSTORE_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "dedup"
	ShellCmd.PersistentFlags().String(key, "per-key", util.WrapString("How repeated writes are detected: per-key compares with the last write to the same key, global compares with the last write to any key"))

	key = "seed"
	ShellCmd.PersistentFlags().String(key, "", util.WrapString("YAML file with initial values (a mapping of key to value) written before the shell starts"))

	key = "metrics-endpoint"
	ShellCmd.PersistentFlags().String(key, "", util.WrapString("Address to serve prometheus metrics on (e.g. localhost:9090), empty to disable"))

	key = "log-level"
	ShellCmd.PersistentFlags().String(key, "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	dedup, ok := registry.ParseDedupMode(viper.GetString("dedup"))
	if !ok {
		return fmt.Errorf("invalid dedup mode: %s (expected one of: per-key, global)", viper.GetString("dedup"))
	}
	shellCmdConfig.Dedup = dedup
	shellCmdConfig.SeedFile = viper.GetString("seed")
	shellCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	shellCmdConfig.LogLevel = viper.GetString("log-level")

	if _, err := common.ParseLogLevel(shellCmdConfig.LogLevel); err != nil {
		return err
	}
	return nil
}

// run starts the shell
func run(cmd *cobra.Command, _ []string) error {
	if err := common.InitLoggers(cmd.ErrOrStderr(), shellCmdConfig.LogLevel); err != nil {
		return err
	}
	plog.Infof("starting shell%s", shellCmdConfig.String())

	reg := registry.NewRegistry(shellCmdConfig.RegistryOptions())

	if shellCmdConfig.SeedFile != "" {
		payload, err := loadSeed(shellCmdConfig.SeedFile)
		if err != nil {
			return err
		}
		reg.BatchUpdate(payload)
		plog.Infof("seeded %d keys from %s", len(payload), shellCmdConfig.SeedFile)
	}

	if shellCmdConfig.MetricsEndpoint != "" {
		srv := newMetricsServer(shellCmdConfig.MetricsEndpoint, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				plog.Errorf("metrics endpoint failed: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		plog.Infof("serving metrics on http://%s/metrics", shellCmdConfig.MetricsEndpoint)
	}

	in := cmd.InOrStdin()
	interactive := false
	if f, ok := in.(*os.File); ok {
		if stat, err := f.Stat(); err == nil {
			interactive = stat.Mode()&os.ModeCharDevice != 0
		}
	}
	return newShell(reg, cmd.OutOrStdout()).run(in, interactive)
}

// newMetricsServer creates an http server exposing the registry and process metrics
func newMetricsServer(addr string, reg registry.IRegistry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		reg.WritePrometheus(w)
		metrics.WritePrometheus(w, true)
	})
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
