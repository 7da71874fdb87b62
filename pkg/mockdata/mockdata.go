// Package mockdata generates the pseudo-random seed data the machines start
// from: form field values, documents to sync, remote editors and a friend list.
// A Generator built with a non-zero seed always produces the same sequence.
package mockdata

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// DocumentCount is the size of every generated document set.
const DocumentCount = 8

// Document is a generated file to sync.
type Document struct {
	ID      string
	Title   string
	Body    string
	Pending bool
}

// FieldValues holds the initial values of the form.
type FieldValues struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Friend is a contact with a message thread.
type Friend struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	Messages []Message `json:"messages"`
}

// Message is one entry of a friend thread.
type Message struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	FromSelf bool      `json:"fromSelf"`
	SentAt   time.Time `json:"sentAt"`
}

// Generator wraps a faker behind a mutex; gofakeit fakers are not safe for
// concurrent use.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	ids   func() string
}

// New returns a generator. Seed zero picks a random seed and random UUIDs;
// any other seed also derives ids from the faker so they repeat too.
func New(seed uint64) *Generator {
	g := &Generator{faker: gofakeit.New(seed)}
	if seed == 0 {
		g.ids = func() string { return uuid.NewString() }
	} else {
		g.ids = func() string { return g.faker.UUID() }
	}
	return g
}

// ID returns a fresh identifier.
func (g *Generator) ID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ids()
}

// Documents returns DocumentCount documents. The first is pending, then odd
// positions are already synced and even ones pending, so a fresh set always
// has work to do.
func (g *Generator) Documents() []Document {
	g.mu.Lock()
	defer g.mu.Unlock()

	docs := make([]Document, DocumentCount)
	for k := range docs {
		docs[k] = Document{
			ID:      g.ids(),
			Title:   g.title(),
			Body:    g.paragraph(3 + g.faker.IntRange(0, 3)),
			Pending: k%2 == 0,
		}
	}
	return docs
}

// Fields returns initial form values.
func (g *Generator) Fields() FieldValues {
	g.mu.Lock()
	defer g.mu.Unlock()

	addr := g.faker.Address()
	return FieldValues{
		Name:    g.faker.Name(),
		Email:   g.faker.Email(),
		Phone:   g.faker.Phone(),
		Address: fmt.Sprintf("%s, %s", addr.Street, addr.City),
	}
}

// FieldValue returns a plausible new value for the named form field.
func (g *Generator) FieldValue(field string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch field {
	case "name":
		return g.faker.Name()
	case "email":
		return g.faker.Email()
	case "phone":
		return g.faker.Phone()
	case "address":
		addr := g.faker.Address()
		return fmt.Sprintf("%s, %s", addr.Street, addr.City)
	}
	return g.faker.Word()
}

// Editor returns the display name of a simulated collaborator.
func (g *Generator) Editor() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.FirstName()
}

// IntRange returns a number in [min, max].
func (g *Generator) IntRange(min, max int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.IntRange(min, max)
}

// Duration returns a duration in [min, max] with millisecond resolution.
func (g *Generator) Duration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	n := g.IntRange(int(min/time.Millisecond), int(max/time.Millisecond))
	return time.Duration(n) * time.Millisecond
}

// Friends returns count friends with 5 to 20 messages each, the newest last.
func (g *Generator) Friends(count int, now time.Time) []Friend {
	g.mu.Lock()
	defer g.mu.Unlock()

	friends := make([]Friend, count)
	for k := range friends {
		id := g.ids()
		msgs := make([]Message, g.faker.IntRange(5, 20))
		at := now
		for m := len(msgs) - 1; m >= 0; m-- {
			at = at.Add(-time.Duration(g.faker.IntRange(1, 120)) * time.Minute)
			msgs[m] = Message{
				ID:       g.ids(),
				Text:     g.sentence(4 + g.faker.IntRange(0, 8)),
				FromSelf: g.faker.Bool(),
				SentAt:   at,
			}
		}
		friends[k] = Friend{
			ID:       id,
			Name:     g.faker.Name(),
			Avatar:   "https://i.pravatar.cc/150?u=" + id,
			Messages: msgs,
		}
	}
	return friends
}

// title and the helpers below must be called with g.mu held.
func (g *Generator) title() string {
	words := []string{g.faker.Adjective(), g.faker.Noun(), g.faker.Noun()}
	return capitalize(strings.Join(words, " "))
}

func (g *Generator) sentence(words int) string {
	parts := make([]string, words)
	for k := range parts {
		parts[k] = g.faker.Word()
	}
	return capitalize(strings.Join(parts, " ")) + "."
}

func (g *Generator) paragraph(sentences int) string {
	parts := make([]string, sentences)
	for k := range parts {
		parts[k] = g.sentence(6 + g.faker.IntRange(0, 6))
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
