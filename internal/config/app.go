package config

import (
	"errors"
	"strings"
)

// AppConfig locates the application source directories the engine
// watches and the server renders from.
type AppConfig struct {
	RoutesDir string        `json:"routes_dir" yaml:"routes_dir"`
	ViewsDir  string        `json:"views_dir" yaml:"views_dir"`
	PublicDir string        `json:"public_dir" yaml:"public_dir"`
	Layouts   LayoutsConfig `json:"layouts" yaml:"layouts"`
}

// LayoutsConfig locates layout templates
type LayoutsConfig struct {
	LayoutsDir string `json:"layouts_dir" yaml:"layouts_dir"`
	Extension  string `json:"extension" yaml:"extension"`
}

// DefaultAppConfig returns default application directory configuration
func DefaultAppConfig() AppConfig {
	return AppConfig{
		RoutesDir: "routes",
		ViewsDir:  "views",
		PublicDir: "public",
		Layouts: LayoutsConfig{
			LayoutsDir: "layouts",
			Extension:  ".tmpl",
		},
	}
}

// WatchRoots returns the directories the dev engine should watch. An
// explicit dev.watch_dirs list wins; otherwise the three source roots
// are watched.
func (c *Config) WatchRoots() []string {
	if len(c.Dev.WatchDirs) > 0 {
		return c.Dev.WatchDirs
	}
	return []string{c.App.RoutesDir, c.App.ViewsDir, c.App.Layouts.LayoutsDir}
}

// Validate validates application directory configuration
func (a *AppConfig) Validate() error {
	var errs []error

	if a.RoutesDir == "" {
		errs = append(errs, errors.New("routes_dir cannot be empty"))
	}
	if a.ViewsDir == "" {
		errs = append(errs, errors.New("views_dir cannot be empty"))
	}
	if a.Layouts.LayoutsDir == "" {
		errs = append(errs, errors.New("layouts.layouts_dir cannot be empty"))
	}
	if a.Layouts.Extension != "" && !strings.HasPrefix(a.Layouts.Extension, ".") {
		errs = append(errs, errors.New("layouts.extension must start with a dot"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
