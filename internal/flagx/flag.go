// Package flagx lets several independent flag sets share one command line.
// Each loader keeps only the flags it owns and parses them with its own
// flag.FlagSet, so unknown flags from other loaders never cause errors.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps the allowed flags and their values, preserving order.
// Both "-f value" and "-f=value" forms are recognised; a value is only
// consumed when the next argument does not itself start with "-".
func FilterArgs(args []string, allowed ...string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, found := strings.Cut(arg, "="); found && strings.HasPrefix(arg, "-") {
			if _, ok := known[name]; ok {
				out = append(out, arg)
			}
			continue
		}

		if _, ok := known[arg]; !ok {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath returns the value of -c / -config in args, or "".
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, "-c", "-config", "--config"))

	return path
}
