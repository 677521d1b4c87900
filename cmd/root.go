package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hkogrunt/grunt/cache"
	"github.com/hkogrunt/grunt/classifier"
	"github.com/hkogrunt/grunt/code_analyzer"
	"github.com/hkogrunt/grunt/config"
	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/hasher"
	"github.com/hkogrunt/grunt/logger"
	"github.com/hkogrunt/grunt/quarantine"
	"github.com/hkogrunt/grunt/runner"
	"github.com/spf13/cobra"
)

// eventBuffer bounds the supervisor's event channel.
const eventBuffer = 64

// RootDependencies is built once per process and shared by every command.
type RootDependencies struct {
	Layout        config.Layout
	Config        *config.Config
	ConfigPath    string
	Home          string
	Logger        *logger.Logger
	Hasher        *hasher.Hasher
	Cache         *cache.CacheManager
	Classifier    *classifier.Classifier
	Analyzer      *code_analyzer.CodeAnalyzer
	Quarantine    *quarantine.Store
	Supervisor    *runner.Supervisor
	ConfigCreated bool
}

type depsKey struct{}

var rootCmd = &cobra.Command{
	Use:   "grunt",
	Short: "HKO Grunt keeps your Desktop and Downloads tidy.",
	Long: `HKO Grunt finds duplicate files, sorts files into category folders,
collects scattered source code into a single repository and prepares code
bundles for AI assistants. Everything it does is logged under
~/Desktop/HKO_METAVERSE/LOGS and nothing is ever overwritten.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || (cmd.Parent() != nil && cmd.Parent().Name() == "completion") {
			return nil
		}
		deps, err := buildRootDependencies(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), depsKey{}, deps))
		return nil
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command; Ctrl+C cancels the running operation.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runRoot(ctx); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error: %v", err)))
		cancel()
		os.Exit(1)
	}
}

// runRoot executes the command line and closes the log file afterwards,
// including when the command failed.
func runRoot(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if deps := handleRootCommand(cmd); deps != nil {
		if err != nil {
			deps.Logger.Error("%s failed: %v", cmd.CommandPath(), err)
		}
		_ = deps.Logger.Close()
	}
	return err
}

func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	deps, _ := cmd.Context().Value(depsKey{}).(*RootDependencies)
	return deps
}

func buildRootDependencies(cmd *cobra.Command) (*RootDependencies, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	root, _ := cmd.Flags().GetString("root")
	if root == "" {
		root = os.Getenv("GRUNT_ROOT")
	}
	if root == "" {
		if root, err = config.DefaultRoot(); err != nil {
			return nil, err
		}
	}

	layout := config.NewLayout(root)
	if err := layout.Ensure(); err != nil {
		return nil, fmt.Errorf("cannot create application folders: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = layout.ConfigFile
	}

	cfg, warnings, exists, err := config.Load(config.LoadOptions{
		Path:     configPath,
		Defaults: config.DefaultConfig(layout),
		Flags:    cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := logger.New(logger.Options{
		Dir:       layout.Logs,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Console:   os.Stderr,
		Quiet:     !verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}

	log.System("HKO Grunt started: %s", cmd.CommandPath())
	for _, w := range warnings {
		log.System("Configuration: %s", w)
	}
	if !exists {
		if err := config.Save(configPath, cfg); err != nil {
			log.Error("Failed to write default configuration %s: %v", configPath, err)
		} else {
			log.System("Created default configuration %s", configPath)
		}
	}

	h, err := hasher.New(cfg.HashAlgorithm)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	var cacheManager *cache.CacheManager
	if cfg.EnableCache {
		if cacheManager, err = cache.NewCacheManager(layout.CacheDir); err != nil {
			log.Warning("Digest cache disabled: %v", err)
			cacheManager = nil
		}
	}

	store, err := quarantine.New(cfg.Quarantine)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	supervisor, err := runner.New(layout.LockDir, eventBuffer)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	return &RootDependencies{
		Layout:        layout,
		Config:        cfg,
		ConfigPath:    configPath,
		Home:          home,
		Logger:        log,
		Hasher:        h,
		Cache:         cacheManager,
		Classifier:    classifier.New(cfg.Table(), cfg.KeywordRules, log),
		Analyzer:      code_analyzer.NewCodeAnalyzer(log, cfg.IgnoreDirs),
		Quarantine:    store,
		Supervisor:    supervisor,
		ConfigCreated: !exists,
	}, nil
}

// scanRoots returns args, or the folders selected by scan_mode when there are none.
func (deps *RootDependencies) scanRoots(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return config.ScanRoots(deps.Config.ScanMode, deps.Home)
}
