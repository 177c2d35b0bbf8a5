package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
	"screentime-bar/src/services"
)

var (
	adminPIN     string
	limitMinutes int
	alertsFile   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's screen time",
	Long:  `Show today's usage, remaining time and alert state without changing anything.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset today's usage to zero",
	Long: `Zero today's counted time, leave the limit-reached state and re-arm every alert.
A limit override set for today is kept. The tray must not be running.`,
	Example: `  screentime-bar reset --pin 1234`,
	Args:    cobra.NoArgs,
	RunE:    runReset,
}

var setLimitCmd = &cobra.Command{
	Use:     "set-limit",
	Short:   "Override today's limit",
	Long:    `Replace today's limit with the given number of minutes. The override ends at midnight.`,
	Example: `  screentime-bar set-limit --pin 1234 --minutes 90`,
	Args:    cobra.NoArgs,
	RunE:    runSetLimit,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show or replace the alert policy",
}

var alertsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active alert policy as YAML",
	Args:  cobra.NoArgs,
	RunE:  runAlertsShow,
}

var alertsSetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Replace the alert policy from a YAML file",
	Example: `  screentime-bar alerts show > alerts.yaml && $EDITOR alerts.yaml && screentime-bar alerts set --pin 1234 --file alerts.yaml`,
	Args:    cobra.NoArgs,
	RunE:    runAlertsSet,
}

func init() {
	for _, cmd := range []*cobra.Command{resetCmd, setLimitCmd, alertsSetCmd} {
		cmd.Flags().StringVar(&adminPIN, "pin", "", "Admin PIN (required)")
		_ = cmd.MarkFlagRequired("pin")
	}

	setLimitCmd.Flags().IntVar(&limitMinutes, "minutes", 0, "Today's limit in minutes, 1-1440 (required)")
	_ = setLimitCmd.MarkFlagRequired("minutes")

	alertsSetCmd.Flags().StringVarP(&alertsFile, "file", "f", "", "Path to the alert policy YAML (required)")
	_ = alertsSetCmd.MarkFlagRequired("file")

	alertsCmd.AddCommand(alertsShowCmd)
	alertsCmd.AddCommand(alertsSetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(setLimitCmd)
	rootCmd.AddCommand(alertsCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a := loadApp()

	// Read-only: no instance lock, and the engine is never asked to persist.
	store, err := services.OpenLedgerStore(a.config, a.paths)
	if err != nil {
		return fmt.Errorf("failed to open ledger (is the tray running with the bolt backend?): %w", err)
	}
	defer store.Close()

	engine := services.NewAccountingEngine(services.EngineOptions{
		Config:      a.config,
		LedgerStore: store,
		Policy:      a.policyStore.LoadOrDefault(),
	})

	now := time.Now()
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(engine.QueryDisplayState(now), engine.Ledger(), engine.Policy()))
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	return withEngine(func(engine *services.AccountingEngine, now time.Time) error {
		if err := engine.ResetToday(adminPIN, now); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Today's screen time was reset.")
		return nil
	})
}

func runSetLimit(cmd *cobra.Command, _ []string) error {
	return withEngine(func(engine *services.AccountingEngine, now time.Time) error {
		if err := engine.SetTodayLimitOverride(adminPIN, limitMinutes, now); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Today's limit is now %s.\n", models.FormatMinutes(limitMinutes))
		return nil
	})
}

func runAlertsShow(cmd *cobra.Command, _ []string) error {
	a := loadApp()
	data, err := yaml.Marshal(a.policyStore.LoadOrDefault())
	if err != nil {
		return lib.PolicyError(err, "failed to encode alert policy")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runAlertsSet(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(alertsFile)
	if err != nil {
		return lib.WrapError(err, lib.ErrCodeValidation, "failed to read alert policy file").
			WithContext("path", alertsFile)
	}
	policy, err := services.DecodePolicy(data)
	if err != nil {
		return err
	}

	return withEngine(func(engine *services.AccountingEngine, now time.Time) error {
		if err := engine.UpdateAlertPolicy(adminPIN, policy, now); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Alert policy updated: %s\n", policy.Summary())
		return nil
	})
}

// withEngine runs an admin command against the persistent ledger. It fails
// while the tray holds the instance lock.
func withEngine(fn func(*services.AccountingEngine, time.Time) error) error {
	a := loadApp()
	engine, lock, err := a.openEngine(lib.RealClock{})
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	defer func() { _ = engine.Close() }()

	return fn(engine, time.Now())
}

var (
	statusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B7FA8")).Width(14)
	statusValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0E0FF"))
	statusTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

// tierColors mirror the menu-bar glyphs.
var tierColors = map[models.SeverityTier]lipgloss.Color{
	models.TierNormal:  lipgloss.Color("#00FF88"),
	models.TierCaution: lipgloss.Color("#FFDD00"),
	models.TierWarning: lipgloss.Color("#FF8800"),
	models.TierExpired: lipgloss.Color("#FF0000"),
}

func renderStatus(state models.DisplayState, ledger *models.UsageLedger, policy *models.AlertPolicy) string {
	tierStyle := lipgloss.NewStyle().Bold(true).Foreground(tierColors[state.Tier])

	remaining := tierStyle.Render(models.FormatMinutes(state.RemainingMinutes) + " " + state.Tier.Emoji() + " " + state.Tier.String())
	limit := models.FormatMinutes(state.LimitSeconds / 60)
	if state.OverrideActive {
		limit += " (override)"
	}

	popups := "none"
	if ledger.LimitReachedToday {
		popups = fmt.Sprintf("%d shown", ledger.PopupsShownToday)
	}

	rows := [][2]string{
		{"Day", state.Day},
		{"Remaining", remaining},
		{"Used", models.FormatMinutes(state.UsedSeconds / 60)},
		{"Limit", limit},
		{"Limit reached", yesNo(state.LimitReached)},
		{"Popups", popups},
		{"Pre alerts", firedSummary(ledger.PreAlertsFired)},
		{"Post alerts", firedSummary(ledger.PostAlertsFired)},
		{"Policy", policy.Summary()},
	}

	var b strings.Builder
	b.WriteString(statusTitleStyle.Render("Screen time"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, statusLabelStyle.Render(row[0]), statusValueStyle.Render(row[1])))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func firedSummary(flags []bool) string {
	fired := 0
	for _, f := range flags {
		if f {
			fired++
		}
	}
	return fmt.Sprintf("%d/%d fired", fired, len(flags))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
