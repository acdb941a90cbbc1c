// Package flagx helps several flag sets share one command line.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args made of allowedFlags and their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      -config=conf.json
//
// Scanning stops at the first positional argument or at "--", so flags that
// belong to a subcommand are never picked up.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" || !strings.HasPrefix(arg, "-") {
			break
		}

		if name, _, ok := strings.Cut(arg, "="); ok {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		_, keep := allowed[arg]
		if keep {
			filtered = append(filtered, arg)
		}
		// the next argument is this flag's value unless it looks like a flag
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !isBoolFlag(arg) {
			if keep {
				filtered = append(filtered, args[i+1])
			}
			i++
		}
	}

	return filtered
}

// boolFlags lists flags that never take a separate value.
var boolFlags = map[string]struct{}{"-h": {}, "-help": {}, "--help": {}}

func isBoolFlag(arg string) bool {
	_, ok := boolFlags[arg]
	return ok
}

// JSONConfigPath extracts the config file path given with -c or -config.
// It returns an empty string when neither is present.
func JSONConfigPath(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return config
}
