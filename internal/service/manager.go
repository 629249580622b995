// Package service installs scribe as a system service (systemd on Linux,
// launchd on macOS).
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"
)

const (
	linuxUnitName = "scribe"
	darwinLabel   = "com.kayz.scribe"
)

// Options describes what the installed service runs.
type Options struct {
	// ConfigFile is passed to the service as SCRIBE_CONFIG. Empty leaves the
	// service on its default lookup.
	ConfigFile string
	// WorkDir is the service working directory; the relative scratch dir and
	// .env resolve against it.
	WorkDir string
	// LogFile receives stdout and stderr.
	LogFile string
}

// Paths returns the installed binary path and service definition path.
func Paths(goos string) (binaryPath, unitPath string, err error) {
	switch goos {
	case "darwin":
		return "/usr/local/bin/scribe",
			fmt.Sprintf("/Library/LaunchDaemons/%s.plist", darwinLabel), nil
	case "linux":
		return "/usr/local/bin/scribe",
			fmt.Sprintf("/etc/systemd/system/%s.service", linuxUnitName), nil
	default:
		return "", "", fmt.Errorf("unsupported platform: %s", goos)
	}
}

// IsInstalled checks whether the service definition and binary are present.
func IsInstalled() bool {
	binaryPath, unitPath, err := Paths(runtime.GOOS)
	if err != nil {
		return false
	}
	if _, err := os.Stat(unitPath); err != nil {
		return false
	}
	_, err = os.Stat(binaryPath)
	return err == nil
}

// IsRunning checks if the service is running.
func IsRunning() bool {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("launchctl", "list", darwinLabel).Run() == nil
	case "linux":
		return exec.Command("systemctl", "is-active", "--quiet", linuxUnitName).Run() == nil
	default:
		return false
	}
}

// Install copies sourceBinary into place, writes the service definition and
// enables it.
func Install(sourceBinary string, opts Options) error {
	binaryPath, unitPath, err := Paths(runtime.GOOS)
	if err != nil {
		return err
	}

	if err := copyBinary(sourceBinary, binaryPath); err != nil {
		return fmt.Errorf("failed to copy binary: %w", err)
	}

	unit, err := Render(runtime.GOOS, binaryPath, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("failed to write service config: %w", err)
	}

	if err := enable(unitPath); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}
	return nil
}

// Uninstall stops and removes the service and its binary.
func Uninstall() error {
	_ = Stop()

	binaryPath, unitPath, err := Paths(runtime.GOOS)
	if err != nil {
		return err
	}

	switch runtime.GOOS {
	case "darwin":
		exec.Command("launchctl", "unload", unitPath).Run()
	case "linux":
		exec.Command("systemctl", "disable", linuxUnitName).Run()
		exec.Command("systemctl", "daemon-reload").Run()
	}

	os.Remove(unitPath)
	os.Remove(binaryPath)
	return nil
}

// Start starts the service.
func Start() error {
	_, unitPath, err := Paths(runtime.GOOS)
	if err != nil {
		return err
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("launchctl", "load", unitPath).Run()
	default:
		return exec.Command("systemctl", "start", linuxUnitName).Run()
	}
}

// Stop stops the service.
func Stop() error {
	_, unitPath, err := Paths(runtime.GOOS)
	if err != nil {
		return err
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("launchctl", "unload", unitPath).Run()
	default:
		return exec.Command("systemctl", "stop", linuxUnitName).Run()
	}
}

func copyBinary(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0755)
}

func enable(unitPath string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("launchctl", "load", unitPath).Run()
	case "linux":
		if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
			return err
		}
		return exec.Command("systemctl", "enable", linuxUnitName).Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.BinaryPath}}</string>
    </array>
{{- if .ConfigFile}}
    <key>EnvironmentVariables</key>
    <dict>
        <key>SCRIBE_CONFIG</key>
        <string>{{.ConfigFile}}</string>
    </dict>
{{- end}}
    <key>WorkingDirectory</key>
    <string>{{.WorkDir}}</string>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogFile}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogFile}}</string>
</dict>
</plist>
`

const systemdUnitTemplate = `[Unit]
Description=Scribe Telegram transcription bot
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.BinaryPath}}
WorkingDirectory={{.WorkDir}}
{{- if .ConfigFile}}
Environment=SCRIBE_CONFIG={{.ConfigFile}}
{{- end}}
Restart=always
RestartSec=5
StandardOutput=append:{{.LogFile}}
StandardError=append:{{.LogFile}}

[Install]
WantedBy=multi-user.target
`

// Render returns the service definition for goos.
func Render(goos, binaryPath string, opts Options) (string, error) {
	if opts.WorkDir == "" {
		opts.WorkDir = "/var/lib/scribe"
	}
	if opts.LogFile == "" {
		opts.LogFile = "/var/log/scribe.log"
	}

	var src string
	switch goos {
	case "darwin":
		src = launchdPlistTemplate
	case "linux":
		src = systemdUnitTemplate
	default:
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}

	tmpl, err := template.New("unit").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]string{
		"Label":      darwinLabel,
		"BinaryPath": binaryPath,
		"ConfigFile": opts.ConfigFile,
		"WorkDir":    opts.WorkDir,
		"LogFile":    opts.LogFile,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
