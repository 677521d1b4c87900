package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hkogrunt/grunt/classifier"
	"github.com/hkogrunt/grunt/hasher"
	"github.com/hkogrunt/grunt/logger"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AuthorizedFolder is one top-level folder of the desktop schema.
type AuthorizedFolder struct {
	Name       string   `mapstructure:"name" json:"name"`
	Subfolders []string `mapstructure:"subfolders" json:"subfolders,omitempty"`
}

// Config represents the structure of the configuration file
type Config struct {
	Quarantine        string                   `mapstructure:"quarantine" json:"quarantine"`
	ScanMode          string                   `mapstructure:"scan_mode" json:"scan_mode"`
	HashAlgorithm     string                   `mapstructure:"hash_algorithm" json:"hash_algorithm"`
	MinFileSizeKB     int                      `mapstructure:"min_file_size_kb" json:"min_file_size_kb"`
	CodeExtensions    []string                 `mapstructure:"code_extensions" json:"code_extensions"`
	DeepScan          bool                     `mapstructure:"deep_scan" json:"deep_scan"`
	EnabledCategories []string                 `mapstructure:"enabled_categories" json:"enabled_categories"`
	Categories        map[string][]string      `mapstructure:"categories" json:"categories"`
	KeywordRules      []classifier.KeywordRule `mapstructure:"keyword_rules" json:"keyword_rules"`
	IgnoreDirs        []string                 `mapstructure:"ignore_dirs" json:"ignore_dirs"`
	AuthorizedFolders []AuthorizedFolder       `mapstructure:"authorized_folders" json:"authorized_folders"`
	LogMaxSizeMB      int                      `mapstructure:"log_max_size_mb" json:"log_max_size_mb"`
	EnableCache       bool                     `mapstructure:"enable_cache" json:"enable_cache"`
}

// DefaultConfig returns the built-in values for a layout.
func DefaultConfig(layout Layout) Config {
	enabled := make([]string, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		enabled = append(enabled, string(c))
	}
	return Config{
		Quarantine:        layout.Quarantine,
		ScanMode:          ScanModeBoth,
		HashAlgorithm:     hasher.SHA256,
		MinFileSizeKB:     10,
		CodeExtensions:    []string{".py", ".html", ".js", ".json", ".txt", ".css", ".md", ".java", ".cpp", ".c", ".h", ".sh", ".bat"},
		DeepScan:          true,
		EnabledCategories: enabled,
		Categories:        map[string][]string{},
		KeywordRules:      []classifier.KeywordRule{},
		IgnoreDirs:        utils.DefaultIgnoredDirs(),
		AuthorizedFolders: []AuthorizedFolder{},
		LogMaxSizeMB:      logger.DefaultMaxSizeMB,
		EnableCache:       true,
	}
}

// flagKeys maps configuration keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"hash_algorithm":   "hash-algorithm",
	"min_file_size_kb": "min-size-kb",
	"scan_mode":        "scan-mode",
	"deep_scan":        "deep-scan",
	"enable_cache":     "cache",
}

// InitFlags registers the persistent flags shared by every command.
func InitFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("root", "", "Application root folder (default ~/Desktop/HKO_METAVERSE, env GRUNT_ROOT).")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the JSON configuration file (default <root>/METAVERSE_LIBRARY/grunt_config.json).")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Echo every log line to the console, not only warnings and errors.")
	rootCmd.PersistentFlags().String("hash-algorithm", "", "Digest used for duplicate detection: sha256 or md5.")
	rootCmd.PersistentFlags().Int("min-size-kb", 0, "Files smaller than this are ignored by duplicate detection.")
	rootCmd.PersistentFlags().String("scan-mode", "", "Folders scanned when no path is given: desktop, downloads or both.")
	rootCmd.PersistentFlags().Bool("deep-scan", true, "Recurse into subfolders when organizing.")
	rootCmd.PersistentFlags().Bool("cache", true, "Reuse digests of unchanged files between duplicate scans.")
}

// LoadOptions controls Load.
type LoadOptions struct {
	Path     string
	Defaults Config
	// Flags, when set, override file and environment values for flags the user changed.
	Flags *pflag.FlagSet
}

// Load reads the JSON config at opts.Path, filling missing keys from
// opts.Defaults, then applies GRUNT_* environment variables and changed flags.
// Problems never fail the load: they are returned as warnings and the
// offending values fall back to defaults. The bool reports whether the file existed.
func Load(opts LoadOptions) (*Config, []string, bool, error) {
	var warnings []string

	exists := true
	if _, err := os.Stat(opts.Path); errors.Is(err, os.ErrNotExist) {
		exists = false
	} else if err != nil {
		return nil, nil, false, fmt.Errorf("failed to stat config file: %w", err)
	}

	var cfg Config
	loaded := false
	if exists {
		v := newViper(opts)
		v.SetConfigFile(opts.Path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			warnings = append(warnings, fmt.Sprintf("config file %s is malformed (%v); using defaults", opts.Path, err))
		} else if err := v.Unmarshal(&cfg); err != nil {
			warnings = append(warnings, fmt.Sprintf("config file %s has invalid values (%v); using defaults", opts.Path, err))
			cfg = Config{}
		} else {
			loaded = true
		}
	}

	if !loaded {
		v := newViper(opts)
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, warnings, exists, fmt.Errorf("unable to decode default config: %w", err)
		}
	}

	warnings = append(warnings, cfg.Normalize(opts.Defaults)...)
	return &cfg, warnings, exists, nil
}

func newViper(opts LoadOptions) *viper.Viper {
	v := viper.New()
	setDefaults(v, opts.Defaults)

	v.SetEnvPrefix("GRUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil && f.Changed {
				_ = v.BindPFlag(key, f)
			}
		}
	}
	return v
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("quarantine", d.Quarantine)
	v.SetDefault("scan_mode", d.ScanMode)
	v.SetDefault("hash_algorithm", d.HashAlgorithm)
	v.SetDefault("min_file_size_kb", d.MinFileSizeKB)
	v.SetDefault("code_extensions", d.CodeExtensions)
	v.SetDefault("deep_scan", d.DeepScan)
	v.SetDefault("enabled_categories", d.EnabledCategories)
	v.SetDefault("categories", d.Categories)
	v.SetDefault("keyword_rules", d.KeywordRules)
	v.SetDefault("ignore_dirs", d.IgnoreDirs)
	v.SetDefault("authorized_folders", d.AuthorizedFolders)
	v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	v.SetDefault("enable_cache", d.EnableCache)
}

// Normalize validates every field once, substituting defaults for invalid
// values. It returns one warning per substitution.
func (c *Config) Normalize(d Config) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	c.Quarantine = strings.TrimSpace(c.Quarantine)
	if c.Quarantine == "" {
		c.Quarantine = d.Quarantine
	}

	c.ScanMode = strings.ToLower(strings.TrimSpace(c.ScanMode))
	switch c.ScanMode {
	case ScanModeDesktop, ScanModeDownloads, ScanModeBoth:
	default:
		warn("invalid scan_mode %q; using %q", c.ScanMode, d.ScanMode)
		c.ScanMode = d.ScanMode
	}

	c.HashAlgorithm = strings.ToLower(strings.TrimSpace(c.HashAlgorithm))
	if !hasher.Supported(c.HashAlgorithm) {
		warn("invalid hash_algorithm %q; using %q", c.HashAlgorithm, d.HashAlgorithm)
		c.HashAlgorithm = d.HashAlgorithm
	}

	if c.MinFileSizeKB < 0 {
		warn("invalid min_file_size_kb %d; using %d", c.MinFileSizeKB, d.MinFileSizeKB)
		c.MinFileSizeKB = d.MinFileSizeKB
	}

	c.CodeExtensions = normalizeExtensions(c.CodeExtensions)
	if len(c.CodeExtensions) == 0 {
		warn("code_extensions is empty; using defaults")
		c.CodeExtensions = normalizeExtensions(d.CodeExtensions)
	}

	var enabled []string
	for _, name := range c.EnabledCategories {
		cat, ok := models.ParseCategory(name)
		if !ok {
			warn("unknown category %q in enabled_categories; ignored", name)
			continue
		}
		enabled = append(enabled, string(cat))
	}
	if len(enabled) == 0 {
		if len(c.EnabledCategories) > 0 {
			warn("enabled_categories has no valid category; enabling all")
		}
		enabled = d.EnabledCategories
	}
	c.EnabledCategories = enabled

	categories := make(map[string][]string, len(c.Categories))
	for name, exts := range c.Categories {
		cat, ok := models.ParseCategory(name)
		if !ok || cat == models.Other {
			warn("unknown category %q in categories; ignored", name)
			continue
		}
		categories[string(cat)] = normalizeExtensions(exts)
	}
	c.Categories = categories
	for _, conflict := range classifier.FindConflicts(c.Table()) {
		warn("duplicate extension mapping: %s is listed under %s and %s; %s wins",
			conflict.Extension, conflict.Winner, conflict.Loser, conflict.Winner)
	}

	var rules []classifier.KeywordRule
	for i, r := range c.KeywordRules {
		var keywords []string
		for _, k := range r.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		r.Keywords = keywords
		r.Destination = strings.TrimSpace(r.Destination)
		if len(r.Keywords) == 0 || r.Destination == "" {
			warn("keyword rule %d has no keywords or destination; ignored", i+1)
			continue
		}
		if !classifier.ValidDestination(r.Destination) {
			warn("keyword rule %d destination %q must be a folder inside ORGANIZED; ignored", i+1, r.Destination)
			continue
		}
		if r.Category != "" {
			cat, ok := models.ParseCategory(r.Category)
			if !ok {
				warn("keyword rule %d names unknown category %q; using the extension category", i+1, r.Category)
			}
			r.Category = string(cat)
		}
		rules = append(rules, r)
	}
	if rules == nil {
		rules = []classifier.KeywordRule{}
	}
	c.KeywordRules = rules

	if c.IgnoreDirs == nil {
		c.IgnoreDirs = d.IgnoreDirs
	}

	var folders []AuthorizedFolder
	for _, f := range c.AuthorizedFolders {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" || strings.ContainsAny(f.Name, `/\`) {
			warn("authorized folder %q is not a plain folder name; ignored", f.Name)
			continue
		}
		folders = append(folders, f)
	}
	if folders == nil {
		folders = []AuthorizedFolder{}
	}
	c.AuthorizedFolders = folders

	if c.LogMaxSizeMB <= 0 {
		if c.LogMaxSizeMB < 0 {
			warn("invalid log_max_size_mb %d; using %d", c.LogMaxSizeMB, d.LogMaxSizeMB)
		}
		c.LogMaxSizeMB = d.LogMaxSizeMB
	}

	return warnings
}

// Table returns the extension table: the built-in rows with per-category
// overrides from the categories key, in category order.
func (c *Config) Table() []classifier.CategoryExtensions {
	table := classifier.DefaultTable()
	for i, row := range table {
		if exts, ok := c.Categories[string(row.Category)]; ok {
			table[i].Extensions = exts
		}
	}
	return table
}

// Enabled returns the enabled categories as typed values.
func (c *Config) Enabled() []models.Category {
	out := make([]models.Category, 0, len(c.EnabledCategories))
	for _, name := range c.EnabledCategories {
		if cat, ok := models.ParseCategory(name); ok {
			out = append(out, cat)
		}
	}
	return out
}

// MinSizeBytes converts the configured threshold to bytes.
func (c *Config) MinSizeBytes() int64 {
	return int64(c.MinFileSizeKB) * 1024
}

// Save writes cfg to path. Keys present in the existing file that Config does
// not know about are kept.
func Save(path string, cfg *Config) error {
	merged := map[string]json.RawMessage{}
	if data, err := os.ReadFile(path); err == nil {
		// A malformed file is replaced entirely.
		_ = json.Unmarshal(data, &merged)
	}

	known, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(orderedObject, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, field{Key: k, Value: merged[k]})
	}

	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return utils.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), append(data, '\n'))
}

func normalizeExtensions(exts []string) []string {
	seen := make(map[string]struct{}, len(exts))
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = utils.NormalizeExtension(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

type field struct {
	Key   string
	Value json.RawMessage
}

// orderedObject marshals as a JSON object with keys in slice order.
type orderedObject []field

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(f.Value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
