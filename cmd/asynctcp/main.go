package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/database64128/asynctcp-go"
	"github.com/database64128/asynctcp-go/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootCmd = &cobra.Command{
		Use:   "asynctcp",
		Short: "Asynchronous TCP client engine",
		Long: `asynctcp (v` + asynctcp.Version + `)

Connects to a TCP endpoint directly or through a SOCKS5, HTTP, or SSH proxy,
optionally over TLS or the negotiate handshake, and pipes standard input and output.

Every flag can also be set with an environment variable named ASYNCTCP_<FLAG>,
for example ASYNCTCP_LOG_LEVEL=debug. Variables are also read from .env and .env.local.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			os.Stdout.WriteString("asynctcp " + asynctcp.Version + "\n")
			if info, ok := debug.ReadBuildInfo(); ok {
				os.Stdout.WriteString(info.String())
			}
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("zap-conf", "console", "Preset name or path to the JSON configuration file for building the zap logger.\nAvailable presets: console, console-nocolor, console-notime, systemd, production, development")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level for the console and systemd presets.\nAvailable levels: debug, info, warn, error, dpanic, panic, fatal")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads environment files and sets up viper to read ASYNCTCP_* variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("asynctcp")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindFlags binds the command's flags, including inherited ones, to viper.
func bindFlags(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

// newLogger builds the logger selected by the zap-conf and log-level flags.
func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	return logging.NewZapLogger(viper.GetString("zap-conf"), level)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
