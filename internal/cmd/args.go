package cmd

import (
	"strconv"
	"strings"
)

// legacyWindows are the named lookback shortcuts of the old command line.
var legacyWindows = map[string]string{
	"--today":     "0",
	"--yesterday": "1",
	"--week":      "7",
	"--month":     "30",
}

// valueFlags are the persistent flags that consume the next argument.
var valueFlags = map[string]bool{
	"-c":          true,
	"--config":    true,
	"--repo":      true,
	"--log-level": true,
	"--format":    true,
}

// NormalizeArgs rewrites the legacy command line into subcommands before
// cobra parses it:
//
//	-N, --days-ago N, --today/--yesterday/--week/--month  =>  hunt --days N
//	N                                                      =>  explore N
//	DEV, PROD                                              =>  check ENV
//
// Arguments that already name a subcommand pass through unchanged. Flags
// that are not legacy shortcuts are kept in place.
func NormalizeArgs(args []string, subcommands []string) []string {
	if len(args) == 0 {
		return args
	}
	for _, a := range args {
		for _, sub := range subcommands {
			if a == sub {
				return args
			}
		}
		if a == "-h" || a == "--help" || a == "--version" {
			return args
		}
	}

	var rest []string
	days := ""
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--days-ago" && i+1 < len(args):
			days = args[i+1]
			i++
		case strings.HasPrefix(a, "--days-ago="):
			days = strings.TrimPrefix(a, "--days-ago=")
		case legacyWindows[a] != "":
			days = legacyWindows[a]
		case isDashNumber(a):
			days = a[1:]
		default:
			rest = append(rest, a)
		}
	}
	if days != "" {
		return append([]string{"hunt", "--days", days}, rest...)
	}

	// Positional shortcuts: the first non-flag argument decides.
	for i := 0; i < len(rest); i++ {
		a := rest[i]
		if valueFlags[a] {
			i++
			continue
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		if _, err := strconv.Atoi(a); err == nil {
			return prepend("explore", rest)
		}
		if upper := strings.ToUpper(a); upper == "DEV" || upper == "PROD" {
			rest[i] = upper
			return prepend("check", rest)
		}
		break
	}
	return rest
}

func isDashNumber(a string) bool {
	if len(a) < 2 || a[0] != '-' {
		return false
	}
	_, err := strconv.Atoi(a[1:])
	return err == nil
}

func prepend(sub string, args []string) []string {
	return append([]string{sub}, args...)
}
