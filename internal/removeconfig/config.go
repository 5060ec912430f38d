// Package removeconfig loads and validates the TOML configuration driving
// the `remove` command: which store to read decisions from, the confidence
// threshold selecting the decision table, ignore rules, path-prefix
// rewrites, and the placeholder inserted into removed function bodies.
package removeconfig

import (
	"fmt"
	"math"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPlaceholder is used when the config names no placeholder of its own.
const DefaultPlaceholder = `UNREACHABLE("{func_name}");`

// Config is the decoded TOML file handed to `remove --config`.
type Config struct {
	DB          string   `toml:"db"`
	P           float64  `toml:"p"`
	NoChange    bool     `toml:"no_change"`
	Placeholder string   `toml:"placeholder"`
	Prelude     []string `toml:"prelude"`

	Ignore            GlobalIgnore          `toml:"ignore"`
	ReplacePathPrefix map[string]string     `toml:"replace_path_prefix"`
	Path              map[string]PathConfig `toml:"path"`
}

// GlobalIgnore applies to every file in the run.
type GlobalIgnore struct {
	Constructors bool     `toml:"constructors"`
	Destructors  bool     `toml:"destructors"`
	PathPrefix   []string `toml:"path_prefix"`
}

// PathConfig holds per-file rules, keyed by the reported (pre-rewrite) path.
type PathConfig struct {
	Ignore PathIgnore `toml:"ignore"`
}

// PathIgnore marks a whole file, specific function names, or explicit line
// ranges as off-limits to the removal writer.
type PathIgnore struct {
	All        bool     `toml:"all"`
	Functions  []string `toml:"functions"`
	LineRanges [][]int  `toml:"line_ranges"`
}

// Load reads and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read remove config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode remove config %s: %w", path, err)
	}

	if cfg.DB == "" {
		return nil, fmt.Errorf("remove config %s: db path is required", path)
	}
	if _, err := TableName(cfg.P); err != nil {
		return nil, fmt.Errorf("remove config %s: %w", path, err)
	}
	for p, ranges := range cfg.Path {
		for _, lr := range ranges.Ignore.LineRanges {
			if len(lr) != 2 || lr[0] > lr[1] {
				return nil, fmt.Errorf("remove config %s: bad line range %v for %s", path, lr, p)
			}
		}
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}

	return &cfg, nil
}

// TableName derives the decision-table name from the confidence threshold,
// rejecting thresholds outside (0, 1] before the store is ever touched.
// p=0.99 selects optimization_result_p0_9900.
func TableName(p float64) (string, error) {
	if p <= 0 || p > 1 {
		return "", fmt.Errorf("threshold p=%v out of range (0, 1]", p)
	}
	return fmt.Sprintf("optimization_result_p0_%d", int(math.Round(p*10000))), nil
}

// RewritePath maps a reported (build-tree) path to where the source actually
// lives on this machine, applying one matching prefix rewrite. When several
// configured prefixes match, which of them applies is not defined.
func (c *Config) RewritePath(path string) string {
	for from, to := range c.ReplacePathPrefix {
		if strings.HasPrefix(path, from) {
			return to + strings.TrimPrefix(path, from)
		}
	}
	return path
}

// IgnoreFile reports whether every function in the file at reportedPath is
// excluded, either by a global path prefix or a per-path all rule. Ignoring
// is not an error; ignored functions are silently excluded.
func (c *Config) IgnoreFile(reportedPath string) bool {
	for _, prefix := range c.Ignore.PathPrefix {
		if strings.HasPrefix(reportedPath, prefix) {
			return true
		}
	}
	if pc, ok := c.Path[reportedPath]; ok && pc.Ignore.All {
		return true
	}
	return false
}

// IgnoreFunction reports whether one reported function in reportedPath is
// excluded by name, line range, or the constructor/destructor defaults.
func (c *Config) IgnoreFunction(reportedPath, funcName string, startLine, endLine int) bool {
	if c.Ignore.Constructors && isConstructor(funcName) {
		return true
	}
	if c.Ignore.Destructors && isDestructor(funcName) {
		return true
	}

	pc, ok := c.Path[reportedPath]
	if !ok {
		return false
	}
	for _, name := range pc.Ignore.Functions {
		if name == funcName {
			return true
		}
	}
	for _, lr := range pc.Ignore.LineRanges {
		if len(lr) == 2 && startLine >= lr[0] && endLine <= lr[1] {
			return true
		}
	}
	return false
}

// isConstructor recognizes Class::Class shapes: the innermost name segment
// repeats its enclosing qualifier.
func isConstructor(name string) bool {
	segs := strings.Split(name, "::")
	if len(segs) < 2 {
		return false
	}
	return segs[len(segs)-1] == segs[len(segs)-2]
}

func isDestructor(name string) bool {
	segs := strings.Split(name, "::")
	return strings.HasPrefix(segs[len(segs)-1], "~")
}
