package navigation

// Slide identifies one page of the presentation.
type Slide struct {
	Example string `json:"example"`
	View    string `json:"view"`
}

// String renders the slide as example/view.
func (s Slide) String() string {
	return s.Example + "/" + s.View
}

const (
	ExampleRoot         = "root"
	ExampleIntroduction = "introduction"
	ExampleMessages     = "messages"
	ExampleLoadingLists = "loading-lists"
	ExampleSyncingFiles = "syncing-files"
	ExampleMultiplayer  = "multiplayer"
	ExampleConclusion   = "conclusion"

	ViewLanding   = "landing"
	ViewAboutMe   = "about-me"
	ViewProblems  = "problems"
	ViewBad       = "bad"
	ViewGood      = "good"
	ViewTakeaway1 = "takeaway-1"
	ViewTakeaway2 = "takeaway-2"
	ViewThankYou  = "thank-you"
)

var slides = []Slide{
	{ExampleRoot, ViewLanding},
	{ExampleIntroduction, ViewAboutMe},
	{ExampleIntroduction, ViewProblems},
	{ExampleMessages, ViewLanding},
	{ExampleMessages, ViewBad},
	{ExampleMessages, ViewGood},
	{ExampleLoadingLists, ViewLanding},
	{ExampleLoadingLists, ViewBad},
	{ExampleLoadingLists, ViewGood},
	{ExampleSyncingFiles, ViewLanding},
	{ExampleSyncingFiles, ViewBad},
	{ExampleSyncingFiles, ViewGood},
	{ExampleMultiplayer, ViewLanding},
	{ExampleMultiplayer, ViewBad},
	{ExampleMultiplayer, ViewGood},
	{ExampleConclusion, ViewTakeaway1},
	{ExampleConclusion, ViewTakeaway2},
	{ExampleConclusion, ViewThankYou},
}

// Slides returns the ordered slide list.
func Slides() []Slide {
	out := make([]Slide, len(slides))
	copy(out, slides)
	return out
}

// First returns the slide a fresh machine starts on.
func First() Slide { return slides[0] }

// Last returns the final slide.
func Last() Slide { return slides[len(slides)-1] }

// Index returns the position of s in the slide list, or -1.
func Index(s Slide) int {
	for k, candidate := range slides {
		if candidate == s {
			return k
		}
	}
	return -1
}
