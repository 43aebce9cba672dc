package topology

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/httm-go/httm/internal/config"
	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/model"
)

// ParseAliasesArg splits a comma-separated "LOCAL:REMOTE[,LOCAL:REMOTE...]"
// string into a model.AliasMap, canonicalizing both sides of each pair.
// Parsing fails if either side cannot be canonicalized.
func ParseAliasesArg(arg string) (model.AliasMap, error) {
	aliases := make(model.AliasMap)
	if strings.TrimSpace(arg) == "" {
		return aliases, nil
	}
	for _, pair := range strings.Split(arg, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, model.NewResolutionError(i18n.G("invalid alias pair %q, expected LOCAL:REMOTE"), pair)
		}
		local, err := canonicalize(parts[0])
		if err != nil {
			return nil, model.NewResolutionError(i18n.G("couldn't canonicalize alias local dir %q: %v"), parts[0], err)
		}
		remote, err := canonicalize(parts[1])
		if err != nil {
			return nil, model.NewResolutionError(i18n.G("couldn't canonicalize alias remote dir %q: %v"), parts[1], err)
		}
		aliases[local] = remote
	}
	return aliases, nil
}

// LoadAliases builds the AliasMap from the environment and an optional
// CLI-supplied string, with the environment taking precedence over the CLI
// per the documented resolution order.
func LoadAliases(cliArg string) (model.AliasMap, error) {
	if env, ok := os.LookupEnv(config.EnvAliases); ok && strings.TrimSpace(env) != "" {
		return ParseAliasesArg(env)
	}

	if local := os.Getenv(config.EnvLocalDir); local != "" {
		remote := os.Getenv(config.EnvRemoteDir)
		if remote == "" {
			remote = os.Getenv(config.EnvSnapPoint)
		}
		if remote != "" {
			return ParseAliasesArg(local + ":" + remote)
		}
	}

	return ParseAliasesArg(cliArg)
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
