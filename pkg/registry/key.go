package registry

import (
	"strings"
)

// NormalizeID canonicalizes an object id: lower case, dashes removed. The API
// accepts both the dashed and undashed forms of the same UUID, and a mention may
// carry either.
func NormalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) == 36 && strings.Count(id, "-") == 4 {
		return strings.ReplaceAll(id, "-", "")
	}
	return id
}

// RunKey identifies the Redis set backing one run's registry.
type RunKey struct {
	// Namespace prefixes every key (default "notion").
	Namespace string

	// RunID is unique per run.
	RunID string
}

// String generates a deterministic key string.
// Format: notion:run:<run-id>:claimed
func (k RunKey) String() string {
	ns := strings.Trim(k.Namespace, ":")
	if ns == "" {
		ns = "notion"
	}
	return strings.Join([]string{ns, "run", k.RunID, "claimed"}, ":")
}
