package tmplengine

import "github.com/shaneholloman/worktrunk/internal/vcsadapter"

// RedactURL strips embedded credentials from a remote URL before it is
// logged or substituted as the remote_url variable (§4.B). Shared with
// internal/vcsadapter so the same rule applies to adapter command tracing.
func RedactURL(raw string) string {
	return vcsadapter.RedactURL(raw)
}
