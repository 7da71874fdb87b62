package navigation_test

import (
	"testing"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlides(t *testing.T) {
	all := navigation.Slides()
	require.Len(t, all, 18)
	assert.Equal(t, navigation.First(), all[0])
	assert.Equal(t, navigation.Slide{Example: "conclusion", View: "thank-you"}, navigation.Last())

	all[0] = navigation.Slide{Example: "tampered"}
	assert.Equal(t, "root", navigation.First().Example, "Slides returns a copy")
}

func TestNavigation_NextAndPrev(t *testing.T) {
	m := navigation.New()
	assert.Equal(t, 0, m.Snapshot().Context.Index())

	m.Send(navigation.Next())
	m.Send(navigation.Next())
	assert.Equal(t, navigation.Slide{Example: "introduction", View: "problems"}, m.Snapshot().Context.CurrentSlide)

	m.Send(navigation.Prev())
	assert.Equal(t, 1, m.Snapshot().Context.Index())
	assert.Equal(t, navigation.StateActive, m.Snapshot().State)
}

func TestNavigation_Clamping(t *testing.T) {
	m := navigation.New()
	for range 5 {
		m.Send(navigation.Prev())
	}
	assert.Equal(t, 0, m.Snapshot().Context.Index())

	for range 40 {
		m.Send(navigation.Next())
	}
	assert.Equal(t, len(navigation.Slides())-1, m.Snapshot().Context.Index())
	assert.Equal(t, "/conclusion/thank-you", m.Path())
}

func TestNavigation_GoTo(t *testing.T) {
	m := navigation.New()
	target := navigation.Slide{Example: "syncing-files", View: "good"}

	m.Send(navigation.GoTo(target))
	assert.Equal(t, target, m.Snapshot().Context.CurrentSlide)
	assert.Equal(t, "/syncing-files/good", m.Path())

	m.Send(navigation.Next())
	assert.Equal(t, navigation.Slide{Example: "multiplayer", View: "landing"}, m.Snapshot().Context.CurrentSlide)
}

func TestNavigation_GoToUnlistedSlide(t *testing.T) {
	m := navigation.New()
	bogus := navigation.Slide{Example: "nowhere", View: "bad"}

	m.Send(navigation.GoTo(bogus))
	assert.Equal(t, bogus, m.Snapshot().Context.CurrentSlide, "GO_TO is not validated")
	assert.Equal(t, -1, m.Snapshot().Context.Index())

	m.Send(navigation.Prev())
	assert.Equal(t, bogus, m.Snapshot().Context.CurrentSlide)

	m.Send(navigation.Next())
	assert.Equal(t, navigation.First(), m.Snapshot().Context.CurrentSlide)
}

func TestNavigation_GoToMalformedPayload(t *testing.T) {
	m := navigation.New()
	m.Send(navigation.Next())
	before := m.Snapshot()

	m.Send(domain.NewEvent(navigation.EventGoTo, map[string]any{"slide": 42}))
	assert.Equal(t, before, m.Snapshot())
}
