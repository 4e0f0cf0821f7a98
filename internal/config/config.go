// Package config loads .ve-config.yaml and environment overrides for the
// workflow substrate, following the same viper idiom the rest of the
// ecosystem uses for layered CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// ProjectRootMarker is the file whose presence (walking upward from cwd)
// identifies a project root.
const ProjectRootMarker = "docs/trunk/GOAL.md"

// FindProjectRoot walks upward from dir looking for ProjectRootMarker.
// Returns an error if no project root is found before reaching the
// filesystem root.
func FindProjectRoot(dir string) (string, error) {
	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, ProjectRootMarker)); err == nil {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", fmt.Errorf("no project root found (missing %s) above %s", ProjectRootMarker, dir)
		}
		d = parent
	}
}

// Initialize sets up the viper configuration singleton. Should be called
// once at CLI/daemon startup. projectRoot may be empty if not yet resolved;
// in that case only the user-global config and environment are consulted.
func Initialize(projectRoot string) error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	if projectRoot != "" {
		configPath := filepath.Join(projectRoot, ".ve-config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			configFileSet = true
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "ve", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("VE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Scheduler/orchestrator defaults.
	v.SetDefault("max_agents", 2)
	v.SetDefault("dispatch_interval_seconds", 1.0)
	v.SetDefault("max_completion_retries", 2)

	// Overlap-detector clustering threshold.
	v.SetDefault("cluster_subsystem_threshold", 3)

	// Daemon network surface.
	v.SetDefault("daemon.tcp_port", 0) // 0 = unix socket only, no TCP
	v.SetDefault("daemon.request_timeout", "10s")

	// Legacy-named env var bound explicitly for backward compatibility.
	_ = v.BindEnv("remote_sync_interval", "VE_REMOTE_SYNC_INTERVAL")
	v.SetDefault("remote_sync_interval", "30s")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

func GetFloat64(key string) float64 {
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// ClampDuration enforces a floor on a configured duration, warning to
// stderr when the configured value was below the floor.
func ClampDuration(key string, floor time.Duration) time.Duration {
	d := GetDuration(key)
	if d < floor {
		fmt.Fprintf(os.Stderr, "config: %s=%s is below minimum %s, clamping\n", key, d, floor)
		return floor
	}
	return d
}
