package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir = ".forum-press"
	minFetchLimit    = 1
)

//go:embed config/settings.yaml
var defaultSettings string

// TagStyle is the card decoration for a forum tag
type TagStyle struct {
	Icon  string `yaml:"icon"`
	Style string `yaml:"style"`
}

// ProjectDefaults fill in project fields missing from the starter message
type ProjectDefaults struct {
	Version string `yaml:"version"`
	Desc    string `yaml:"desc"`
	Link    string `yaml:"link"`
	BtnText string `yaml:"btn_text"`
	Icon    string `yaml:"icon"`
	Style   string `yaml:"style"`
}

// FetchSettings bounds what is read from Discord and the CDN
type FetchSettings struct {
	BlogLimit           int     `yaml:"blog_limit"`
	UpdatesLimit        int     `yaml:"updates_limit"`
	ImageTimeoutSeconds int     `yaml:"image_timeout_seconds"`
	ImagesPerSecond     float64 `yaml:"images_per_second"`
}

// DateSettings are Go time layouts for the rendered dates
type DateSettings struct {
	BlogLayout    string `yaml:"blog_layout"`
	ProjectLayout string `yaml:"project_layout"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	OutputDirectory string              `yaml:"output_directory"`
	ImageDirectory  string              `yaml:"image_directory"`
	ImagePublicPath string              `yaml:"image_public_path"`
	Fetch           FetchSettings       `yaml:"fetch"`
	Dates           DateSettings        `yaml:"dates"`
	Defaults        ProjectDefaults     `yaml:"defaults"`
	Tags            map[string]TagStyle `yaml:"tags"`
}

// ImageDir returns the directory attachments are written to
func (s *Settings) ImageDir() string {
	if filepath.IsAbs(s.ImageDirectory) {
		return s.ImageDirectory
	}
	return filepath.Join(s.OutputDirectory, s.ImageDirectory)
}

// OutputPath returns the path of an output file
func (s *Settings) OutputPath(name string) string {
	return filepath.Join(s.OutputDirectory, name)
}

// Credentials identify the bot and the channels it reads
type Credentials struct {
	Token           string
	BlogChannelID   string
	ProjectsForumID string
}

// GetConfigPath returns the full path to a config file
func GetConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// parseSettings decodes YAML on top of the embedded defaults
func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	settings.normalize()
	return &settings, nil
}

// normalize repairs values a hand-edited settings file may have broken
func (s *Settings) normalize() {
	if s.OutputDirectory == "" {
		s.OutputDirectory = "."
	}
	if s.ImageDirectory == "" {
		s.ImageDirectory = "img"
	}
	// image_directory may be absolute; only its name belongs in a link
	if s.ImagePublicPath == "" {
		s.ImagePublicPath = filepath.ToSlash(filepath.Base(s.ImageDirectory))
	}
	s.ImagePublicPath = strings.TrimSuffix(s.ImagePublicPath, "/")
	if s.Fetch.BlogLimit < minFetchLimit {
		log.Printf("Warning: fetch.blog_limit is %d, defaulting to 50", s.Fetch.BlogLimit)
		s.Fetch.BlogLimit = 50
	}
	if s.Fetch.UpdatesLimit < minFetchLimit {
		log.Printf("Warning: fetch.updates_limit is %d, defaulting to 100", s.Fetch.UpdatesLimit)
		s.Fetch.UpdatesLimit = 100
	}
	if s.Fetch.ImageTimeoutSeconds <= 0 {
		s.Fetch.ImageTimeoutSeconds = 30
	}
	if s.Dates.BlogLayout == "" {
		s.Dates.BlogLayout = "02/01/2006"
	}
	if s.Dates.ProjectLayout == "" {
		s.Dates.ProjectLayout = "2006-01-02"
	}
	if s.Tags == nil {
		s.Tags = map[string]TagStyle{}
	}
}

// loadSettings loads settings from YAML file with fallback to defaults
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		debugLog("settings file %s not readable (%v), using embedded defaults", settingsPath, err)
		return parseSettings(nil)
	}
	return parseSettings(data)
}

// loadSettingsRequired loads settings from YAML file, failing if file doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", settingsPath, err)
	}
	return parseSettings(data)
}

// ensureConfigExists creates config directory and writes settings.yaml if needed
func ensureConfigExists() error {
	err := os.MkdirAll(defaultConfigDir, 0755)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := GetConfigPath("settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		err = os.WriteFile(settingsFile, []byte(defaultSettings), 0644)
		if err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
		log.Printf("Wrote default settings to %s", settingsFile)
	}

	return nil
}

// bindCredentials ties each credential to its environment variable and flag.
// A flag set on the command line wins over the environment.
func bindCredentials(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	bindings := []struct {
		key  string
		env  string
		flag string
	}{
		{"token", "DISCORD_TOKEN", "token"},
		{"blog_channel_id", "BLOG_CHANNEL_ID", "blog-channel"},
		{"projects_forum_id", "PROJECTS_FORUM_ID", "projects-forum"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", b.env, err)
		}
		if f := cmd.Flags().Lookup(b.flag); f != nil {
			if err := v.BindPFlag(b.key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", b.flag, err)
			}
		}
	}
	return v, nil
}

// loadCredentials reads the bound credentials, requiring the ones the run needs
func loadCredentials(v *viper.Viper, needBlog, needProjects bool) (*Credentials, error) {
	creds := &Credentials{
		Token:           strings.TrimSpace(v.GetString("token")),
		BlogChannelID:   strings.TrimSpace(v.GetString("blog_channel_id")),
		ProjectsForumID: strings.TrimSpace(v.GetString("projects_forum_id")),
	}

	var missing []string
	if creds.Token == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if needBlog && creds.BlogChannelID == "" {
		missing = append(missing, "BLOG_CHANNEL_ID")
	}
	if needProjects && creds.ProjectsForumID == "" {
		missing = append(missing, "PROJECTS_FORUM_ID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing configuration: set %s (environment or flag)", strings.Join(missing, ", "))
	}
	return creds, nil
}
