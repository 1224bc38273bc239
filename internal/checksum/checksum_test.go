package checksum

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateContentHash(t *testing.T) {
	gen := NewGenerator("example.com")

	date := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	flavors := []string{"Chocolate", "Peachy Kiwi", "Mint"}

	hash1 := gen.GenerateContentHash("a@example.com", &date, flavors)
	hash2 := gen.GenerateContentHash("A@Example.com", &date, flavors)

	assert.Equal(t, hash1, hash2, "hash should ignore recipient case")
	assert.Len(t, hash1, 64)

	assert.NotEqual(t, hash1, gen.GenerateContentHash("b@example.com", &date, flavors))
	assert.NotEqual(t, hash1, gen.GenerateContentHash("a@example.com", nil, flavors))
	assert.NotEqual(t, hash1, gen.GenerateContentHash("a@example.com", &date, flavors[:2]))
}

var messageIDPattern = regexp.MustCompile(`^<[0-9a-f]{24}\.[0-9a-z]+\.[0-9a-f]{16}@localhost>$`)

func TestMessageIDShape(t *testing.T) {
	gen := NewGenerator("")
	flavors := []string{"Vanilla"}
	sentAt := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)

	id := gen.MessageID("a@example.com", nil, flavors, sentAt)

	assert.Regexp(t, messageIDPattern, id)
	assert.True(t, strings.HasPrefix(id, "<"+gen.GenerateContentHash("a@example.com", nil, flavors)[:24]+"."))
}

func TestMessageIDUniquePerSend(t *testing.T) {
	gen := NewGenerator("example.com")
	date := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	flavors := []string{"Peachy Kiwi"}
	sentAt := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		// Same listing, same recipient, even the same clock reading.
		id := gen.MessageID("a@example.com", &date, flavors, sentAt)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate Message-ID %s", id)
		seen[id] = struct{}{}
	}

	later := gen.MessageID("a@example.com", &date, flavors, sentAt.Add(24*time.Hour))
	assert.NotContains(t, seen, later)
}
