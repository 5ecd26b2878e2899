package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const readyTimeout = 30 * time.Second

var (
	settingsPath string
	outputDir    string
	debugMode    bool
	skipBlog     bool
	skipProjects bool

	debugEnabled bool
)

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

var rootCmd = &cobra.Command{
	Use:   "forum-press",
	Short: "Generate static site JSON from Discord channels",
	Long: `Reads the blog channel and the project forum of a Discord server and writes
blog.json, projects.json and one <project>_detail.json per forum thread.
Entries already on disk that no longer come from Discord are kept.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugMode {
			SetDebugMode(true)
		}
		if skipBlog && skipProjects {
			return fmt.Errorf("nothing to do: both --skip-blog and --skip-projects are set")
		}

		settings, err := resolveSettings()
		if err != nil {
			return err
		}

		v, err := bindCredentials(cmd)
		if err != nil {
			return err
		}
		creds, err := loadCredentials(v, !skipBlog, !skipProjects)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source, err := NewDiscordSource(creds.Token)
		if err != nil {
			return err
		}
		readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		err = source.Open(readyCtx)
		cancel()
		if err != nil {
			return err
		}
		defer source.Close()

		generator := NewSiteGenerator(source, NewImageDownloader(settings), settings, creds.BlogChannelID, creds.ProjectsForumID)
		generator.SetSkips(skipBlog, skipProjects)

		summary, err := generator.Run(ctx)
		if err != nil {
			return err
		}

		skipped := 0
		for _, r := range summary.Results {
			if r.Status == StatusSkipped {
				skipped++
			}
		}
		log.Printf("Done: %d blog entries, %d projects, %d threads skipped", summary.BlogEntries, summary.Projects, skipped)
		return nil
	},
}

// resolveSettings loads --settings when given, the default settings file otherwise
func resolveSettings() (*Settings, error) {
	var settings *Settings
	var err error
	if settingsPath != "" {
		settings, err = loadSettingsRequired(settingsPath)
	} else {
		if err := ensureConfigExists(); err != nil {
			return nil, fmt.Errorf("ensuring config files exist: %w", err)
		}
		settings, err = loadSettings(GetConfigPath("settings.yaml"))
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	if outputDir != "" {
		settings.OutputDirectory = outputDir
	}
	return settings, nil
}

func init() {
	rootCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to a settings YAML file (default .forum-press/settings.yaml)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "Directory for the generated JSON, overrides output_directory")
	rootCmd.Flags().String("token", "", "Discord bot token (env DISCORD_TOKEN)")
	rootCmd.Flags().String("blog-channel", "", "Blog channel ID (env BLOG_CHANNEL_ID)")
	rootCmd.Flags().String("projects-forum", "", "Project forum ID (env PROJECTS_FORUM_ID)")
	rootCmd.Flags().BoolVar(&skipBlog, "skip-blog", false, "Do not regenerate blog.json")
	rootCmd.Flags().BoolVar(&skipProjects, "skip-projects", false, "Do not regenerate projects.json and detail files")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
