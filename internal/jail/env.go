package jail

import "strings"

// FilterEnv returns the entries of env whose names appear in allowlist,
// preserving order. Entries without '=' are dropped; name matching is
// case-sensitive. The jailed process sees nothing else — the wrapper
// itself never touches the environment.
func FilterEnv(env, allowlist []string) []string {
	if len(env) == 0 || len(allowlist) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = struct{}{}
	}

	var out []string
	for _, entry := range env {
		name, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, ok := allowed[name]; ok {
			out = append(out, entry)
		}
	}
	return out
}
