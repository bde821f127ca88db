package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns a slice of command-line arguments that only contains
// the allowed flags (and their values) specified in allowedFlags.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -e dev.env
//  2. Flag and value combined with '=':      --env-file=dev.env
//
// Parameters:
//
//	args         — the command-line arguments (usually os.Args[1:])
//	allowedFlags — list of allowed flag names (e.g. []string{"-e", "--env-file"})
//
// Returns:
//
//	A slice containing the allowed flags and their values (if provided separately).
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	// Always non-nil so the result is safe to hand to flag.FlagSet.Parse.
	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--flag=value" or "-f=value" form.
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		// Flag as a separate argument; the value, if any, follows it.
		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// EnvFileFlags inspects command-line arguments and extracts the env file
// path provided via the -e or -env-file flags.
//
// Only these flags are parsed; other arguments are ignored. This allows the
// application to safely parse its own flags without interfering with flags
// defined by other packages.
//
// If neither -e nor -env-file is present, an empty string is returned.
func EnvFileFlags() string {
	var envFile string

	args := FilterArgs(os.Args[1:], []string{"-e", "-env-file"})

	fs := flag.NewFlagSet("env", flag.ContinueOnError)
	fs.StringVar(&envFile, "env-file", "", "Path to env file")
	fs.StringVar(&envFile, "e", "", "Path to env file (short)")
	_ = fs.Parse(args)

	return envFile
}
