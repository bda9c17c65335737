package cmd

import (
	"fmt"
	"os"
	"time"

	"cardiag/internal/cmd/root"
	"cardiag/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cardiag",
	Short: "Vehicle diagnostics over an OBD2/ELM327 adapter",
	Run:   root.Run,
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().Bool("no-tui", false, "Run without TUI (print a single scan summary)")
	rootCmd.PersistentFlags().Bool("synthetic", false, "Use the synthetic adapter instead of real hardware")
	rootCmd.PersistentFlags().Int64("seed", 1, "Seed for the synthetic adapter")
	rootCmd.PersistentFlags().String("port", "", "Serial device of the adapter (auto-detected when empty)")
	rootCmd.PersistentFlags().Int("baud", 38400, "Baud rate for the serial connection")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Second, "Per-command read timeout")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("no-tui", rootCmd.PersistentFlags().Lookup("no-tui"))
	viper.BindPFlag("synthetic", rootCmd.PersistentFlags().Lookup("synthetic"))
	viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	// Set default values
	viper.SetDefault("debug", false)
	viper.SetDefault("no-tui", false)
	viper.SetDefault("synthetic", false)
	viper.SetDefault("seed", 1)
	viper.SetDefault("port", "")
	viper.SetDefault("baud", 38400)
	viper.SetDefault("timeout", 5*time.Second)
}

func initLogger() {
	log.InitLogger(viper.GetBool("debug"))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
