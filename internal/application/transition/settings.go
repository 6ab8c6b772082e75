package transition

import "github.com/itam/backend/internal/domain/transition"

// Settings is the configuration the request handler and dispatcher run with
type Settings struct {
	// Enabled switches the whole transitions feature on or off
	Enabled bool
	// TransitionSlugs maps a transition type to the slug of its Transition
	TransitionSlugs map[transition.TransitionType]string
	// ReportSlugs maps a transition type to the slug of its report template
	ReportSlugs map[transition.TransitionType]string
	// TempStoragePath is prefixed as-is to report file names, so it
	// normally ends with a path separator
	TempStoragePath string
}

// TransitionSlug returns the configured transition slug for t
func (s Settings) TransitionSlug(t transition.TransitionType) (string, bool) {
	slug, ok := s.TransitionSlugs[t]
	return slug, ok && slug != ""
}

// ReportSlug returns the configured report template slug for t
func (s Settings) ReportSlug(t transition.TransitionType) (string, bool) {
	slug, ok := s.ReportSlugs[t]
	return slug, ok && slug != ""
}
