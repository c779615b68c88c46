package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "meshview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "meshview")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshview")
	}
}

// loadFromFile merges a YAML file over the values already in cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate rejects settings the renderer cannot work with.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera planes must satisfy 0 < near < far, got near=%g far=%g", c.Camera.Near, c.Camera.Far)
	}
	if c.Camera.FOV < 1 || c.Camera.FOV > 45 {
		return fmt.Errorf("camera fov must be within [1, 45], got %g", c.Camera.FOV)
	}
	switch c.Camera.Mode {
	case "fly", "orbit":
	default:
		return fmt.Errorf("unknown camera mode %q", c.Camera.Mode)
	}
	if c.Scene.MaxTextureSize < 0 {
		return fmt.Errorf("max_texture_size must not be negative")
	}
	if (c.Render.VertexShader == "") != (c.Render.FragmentShader == "") {
		return fmt.Errorf("vertex_shader and fragment_shader must be set together")
	}
	switch c.Render.Shader {
	case "default", "depth":
	default:
		return fmt.Errorf("unknown shader %q", c.Render.Shader)
	}
	return nil
}
