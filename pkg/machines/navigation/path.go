package navigation

import (
	"regexp"
	"slices"
)

var pathPattern = regexp.MustCompile(`/([^/]+)(?:/([^/]+))?`)

var (
	pathExamples = []string{
		ExampleIntroduction,
		ExampleMessages,
		ExampleLoadingLists,
		ExampleSyncingFiles,
		ExampleMultiplayer,
		ExampleConclusion,
	}
	introductionViews = []string{ViewAboutMe, ViewProblems}
	conclusionViews   = []string{ViewTakeaway1, ViewTakeaway2, ViewThankYou}
	exampleViews      = []string{ViewBad, ViewGood}
)

// PathToSlide maps a URL path to a slide. The root path and the empty string
// map to the first slide; a path naming an example twice or only once maps to
// its landing view. Anything else that is not a known page reports false.
func PathToSlide(path string) (Slide, bool) {
	if path == "/" || path == "" {
		return First(), true
	}

	m := pathPattern.FindStringSubmatch(path)
	if m == nil {
		return Slide{}, false
	}
	example, view := m[1], m[2]
	if !slices.Contains(pathExamples, example) {
		return Slide{}, false
	}

	switch example {
	case ExampleIntroduction:
		if slices.Contains(introductionViews, view) {
			return Slide{example, view}, true
		}
		return Slide{}, false
	case ExampleConclusion:
		if slices.Contains(conclusionViews, view) {
			return Slide{example, view}, true
		}
		return Slide{}, false
	}

	if view == "" || view == example {
		return Slide{example, ViewLanding}, true
	}
	if slices.Contains(exampleViews, view) {
		return Slide{example, view}, true
	}
	return Slide{}, false
}

// SlideToPath builds the canonical path of s.
func SlideToPath(s Slide) string {
	switch {
	case s.Example == ExampleRoot:
		return "/"
	case s.Example == ExampleIntroduction, s.Example == ExampleConclusion:
		return "/" + s.Example + "/" + s.View
	case s.View == ViewLanding:
		return "/" + s.Example
	default:
		return "/" + s.Example + "/" + s.View
	}
}
