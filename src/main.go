package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
	"screentime-bar/src/services"
)

var (
	version    = "dev"
	configPath string
	daemonMode bool
)

// rootCmd runs the menu-bar tray when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "screentime-bar",
	Short: "Daily screen-time limiter for the menu bar",
	Long: `screentime-bar counts active screen time against a daily limit, shows the
remaining time in the menu bar, and escalates alerts as the limit approaches
and passes. Administrative changes are gated by a PIN.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runTray,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: XDG config directory)")
	rootCmd.Flags().BoolVar(&daemonMode, "daemon", false, "Run as daemon (background process)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the configuration every command starts from.
type app struct {
	config      *models.Config
	paths       services.Paths
	policyStore *services.PolicyStore
	logger      *lib.Logger
}

func loadApp() *app {
	configService := services.NewConfigService()
	if configPath != "" {
		configService.SetConfigPath(configPath)
	}

	logger := lib.NewLogger("main")
	config, err := configService.Load()
	if err != nil {
		logger.Warn("Failed to load configuration, using defaults", map[string]interface{}{
			"error": err.Error(),
			"path":  configService.GetConfigPath(),
		})
		config = models.ConfigDefaults()
	}

	lib.SetGlobalLevel(config.GetLogLevel())
	logger.SetLevel(config.GetLogLevel())
	logger.Debug("Configuration loaded", map[string]interface{}{
		"dailyLimitMinutes": config.DailyLimitMinutes,
		"tickInterval":      config.TickInterval,
		"storeBackend":      config.StoreBackend,
	})

	paths := configService.ResolvePaths(config)
	return &app{
		config:      config,
		paths:       paths,
		policyStore: services.NewPolicyStore(paths.Policy),
		logger:      logger,
	}
}

// openEngine takes the instance lock and builds an engine over the
// persistent stores. Only one process may own the ledger at a time.
func (a *app) openEngine(clock lib.Clock) (*services.AccountingEngine, *lib.InstanceLock, error) {
	lock, err := lib.AcquireInstanceLock(a.paths.Lock)
	if err != nil {
		return nil, nil, err
	}

	store, err := services.OpenLedgerStore(a.config, a.paths)
	if err != nil {
		_ = lock.Release()
		return nil, nil, err
	}

	engine := services.NewAccountingEngine(services.EngineOptions{
		Config:      a.config,
		LedgerStore: store,
		PolicyStore: a.policyStore,
		Policy:      a.policyStore.LoadOrDefault(),
		Audit:       services.NewFileAuditLog(a.paths.Audit),
		Clock:       clock,
	})
	return engine, lock, nil
}

func runAsDaemon() error {
	execPath, err := os.Executable()
	if err != nil {
		return lib.WrapError(err, lib.ErrCodeSystem, "failed to get executable path")
	}

	resolved, err := exec.LookPath(execPath)
	if err != nil {
		return lib.WrapError(err, lib.ErrCodeSystem, "failed to resolve executable")
	}
	cmd := exec.CommandContext(context.Background(), resolved, withoutDaemonFlag(os.Args[1:])...) // #nosec G204 validated via LookPath
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return lib.WrapError(err, lib.ErrCodeSystem, "failed to start daemon")
	}

	fmt.Printf("screentime-bar started as daemon (PID: %d)\n", cmd.Process.Pid)
	fmt.Printf("To stop: kill %d\n", cmd.Process.Pid)
	return nil
}

func withoutDaemonFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--daemon" || arg == "--daemon=true" {
			continue
		}
		out = append(out, arg)
	}
	return out
}
