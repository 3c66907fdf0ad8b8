package cloud

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxNameLen is the SageMaker limit for job, model and endpoint names.
const maxNameLen = 63

// jobName builds a unique platform job name from a base. SageMaker names
// must match [a-zA-Z0-9-] and stay within maxNameLen.
func jobName(base string, now time.Time) string {
	base = sanitizeName(base)
	if base == "" {
		base = "sagify"
	}
	suffix := fmt.Sprintf("%s-%s", now.UTC().Format("2006-01-02-15-04-05"), uuid.NewString()[:8])
	if len(base)+len(suffix)+1 > maxNameLen {
		base = base[:maxNameLen-len(suffix)-1]
	}
	return base + "-" + suffix
}

// sanitizeName replaces characters SageMaker rejects in names.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// imageBase extracts the repository name from an image reference, dropping
// any registry prefix and tag.
func imageBase(image string) string {
	base := image
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, ":"); i >= 0 {
		base = base[:i]
	}
	return base
}
