package transition

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TransitionType is the keyword a request uses to pick a transition
type TransitionType string

const (
	TypeReleaseAsset TransitionType = "release-asset"
	TypeReturnAsset  TransitionType = "return-asset"
	TypeLoanAsset    TransitionType = "loan-asset"
)

var transitionTypes = []TransitionType{TypeReleaseAsset, TypeReturnAsset, TypeLoanAsset}

// TransitionTypes returns the supported transition types
func TransitionTypes() []TransitionType {
	out := make([]TransitionType, len(transitionTypes))
	copy(out, transitionTypes)
	return out
}

// ParseTransitionType returns the type for keyword and whether it is supported
func ParseTransitionType(keyword string) (TransitionType, bool) {
	t := TransitionType(strings.TrimSpace(keyword))
	return t, t.IsValid()
}

// IsValid reports whether the type is in the supported set
func (t TransitionType) IsValid() bool {
	for _, known := range transitionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DisplayName turns "release-asset" into "Release Asset"
func (t TransitionType) DisplayName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(t), "-", " "))
}

// String returns the string representation of the type
func (t TransitionType) String() string {
	return string(t)
}
