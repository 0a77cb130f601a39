package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var bracedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
//   - ${VAR} must be set; every missing name is reported in one ErrMissingEnv.
//   - $VAR expands to the empty string when unset, like os.ExpandEnv.
//   - $$ emits a literal $.
func ExpandEnvStrict(s string) (string, error) {
	var missing []string
	for _, m := range bracedVar.FindAllStringSubmatch(strings.ReplaceAll(s, "$$", ""), -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		return os.Getenv(name)
	}), nil
}
