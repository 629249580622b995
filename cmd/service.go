package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kayz/scribe/internal/config"
	"github.com/kayz/scribe/internal/service"
	"github.com/spf13/cobra"
)

var (
	serviceWorkDir string
	serviceLogFile string
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the scribe service",
	Long:  `Install, uninstall, start, stop, or check the status of the scribe system service.`,
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install scribe as a system service",
	Long: `Install scribe as a system service (requires root privileges).

The service runs with --workdir as its working directory, so a relative
scratch dir and a .env file there are picked up.`,
	Run: func(cmd *cobra.Command, args []string) {
		execPath, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting executable path: %v\n", err)
			os.Exit(1)
		}

		opts := service.Options{
			WorkDir: serviceWorkDir,
			LogFile: serviceLogFile,
		}
		if p := config.ConfigPath(); p != "" {
			if abs, err := filepath.Abs(p); err == nil {
				if _, err := os.Stat(abs); err == nil {
					opts.ConfigFile = abs
				}
			}
		}

		fmt.Println("Installing scribe service...")
		if err := service.Install(execPath, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error installing service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service installed successfully!")
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the scribe service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Uninstalling scribe service...")
		if err := service.Uninstall(); err != nil {
			fmt.Fprintf(os.Stderr, "Error uninstalling service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service uninstalled successfully!")
	},
}

var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scribe service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := service.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service started!")
	},
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the scribe service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := service.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service stopped!")
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the scribe service",
	Run: func(cmd *cobra.Command, args []string) {
		binaryPath, unitPath, err := service.Paths(runtime.GOOS)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("=== scribe Service Status ===")
		fmt.Println()
		fmt.Printf("Installed: %v\n", service.IsInstalled())
		fmt.Printf("Running:   %v\n", service.IsRunning())
		fmt.Println()
		fmt.Printf("Binary:    %s\n", binaryPath)
		fmt.Printf("Unit:      %s\n", unitPath)
	},
}

func init() {
	serviceInstallCmd.Flags().StringVar(&serviceWorkDir, "workdir", "/var/lib/scribe", "Service working directory")
	serviceInstallCmd.Flags().StringVar(&serviceLogFile, "log-file", "/var/log/scribe.log", "File receiving service stdout and stderr")

	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStartCmd)
	serviceCmd.AddCommand(serviceStopCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}
