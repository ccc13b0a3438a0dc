package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootFlags struct {
	configPath string
	subject    string
	output     string
	format     string
	driver     string
	headless   bool
	maxPages   int
	dryRun     bool
	verbose    bool
}

func (f *rootFlags) registerPersistent(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	fs.StringVarP(&f.subject, "subject", "s", "", `Tree path to archive, labels separated by "|"`)
	fs.StringVar(&f.driver, "driver", "", "Browser driver (playwright|rod)")
	fs.BoolVar(&f.headless, "headless", true, "Run the browser without a window")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Debug logging")
}

func (f *rootFlags) registerRun(fs *pflag.FlagSet) {
	fs.StringVarP(&f.output, "output", "o", "", "Archive file to write")
	fs.StringVar(&f.format, "format", "", "Archive format (html|markdown)")
	fs.IntVar(&f.maxPages, "max-pages", 0, "Stop after this many pages (0 = all)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Enumerate leaves only; do not extract")
}

// overrides returns the config keys for flags given on the command line.
func (f *rootFlags) overrides(cmd *cobra.Command) map[string]any {
	fs := cmd.Flags()
	out := map[string]any{}
	set := func(name, key string, v any) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			out[key] = v
		}
	}
	set("subject", "subject", f.subject)
	set("output", "output.path", f.output)
	set("format", "output.format", f.format)
	set("driver", "driver", f.driver)
	set("headless", "headless", f.headless)
	set("max-pages", "max_pages", f.maxPages)
	if f.verbose {
		out["log_level"] = "debug"
	}
	return out
}
