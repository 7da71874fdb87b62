package navigation_test

import (
	"testing"

	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/stretchr/testify/assert"
)

func TestPathToSlide(t *testing.T) {
	tests := []struct {
		path string
		want navigation.Slide
		ok   bool
	}{
		{"/", navigation.Slide{Example: "root", View: "landing"}, true},
		{"", navigation.Slide{Example: "root", View: "landing"}, true},
		{"/messages", navigation.Slide{Example: "messages", View: "landing"}, true},
		{"/messages/messages", navigation.Slide{Example: "messages", View: "landing"}, true},
		{"/messages/bad", navigation.Slide{Example: "messages", View: "bad"}, true},
		{"/multiplayer/good", navigation.Slide{Example: "multiplayer", View: "good"}, true},
		{"/loading-lists/good/extra", navigation.Slide{Example: "loading-lists", View: "good"}, true},
		{"/introduction/about-me", navigation.Slide{Example: "introduction", View: "about-me"}, true},
		{"/conclusion/takeaway-2", navigation.Slide{Example: "conclusion", View: "takeaway-2"}, true},
		{"/introduction", navigation.Slide{}, false},
		{"/introduction/bad", navigation.Slide{}, false},
		{"/conclusion", navigation.Slide{}, false},
		{"/messages/ugly", navigation.Slide{}, false},
		{"/root", navigation.Slide{}, false},
		{"/unknown/bad", navigation.Slide{}, false},
		{"messages", navigation.Slide{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := navigation.PathToSlide(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlideToPath(t *testing.T) {
	assert.Equal(t, "/", navigation.SlideToPath(navigation.First()))
	assert.Equal(t, "/introduction/problems", navigation.SlideToPath(navigation.Slide{Example: "introduction", View: "problems"}))
	assert.Equal(t, "/syncing-files", navigation.SlideToPath(navigation.Slide{Example: "syncing-files", View: "landing"}))
	assert.Equal(t, "/messages/good", navigation.SlideToPath(navigation.Slide{Example: "messages", View: "good"}))
}

func TestPathRoundTrip(t *testing.T) {
	for _, s := range navigation.Slides() {
		got, ok := navigation.PathToSlide(navigation.SlideToPath(s))
		if assert.True(t, ok, s.String()) {
			assert.Equal(t, s, got)
		}
	}
}
