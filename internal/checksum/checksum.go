package checksum

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Generator struct {
	domain string
}

// NewGenerator returns a generator whose message IDs end in @domain.
func NewGenerator(domain string) *Generator {
	if domain == "" {
		domain = "localhost"
	}
	return &Generator{domain: domain}
}

// GenerateContentHash returns SHA256(recipient|date_iso|flavor1\nflavor2...) as hex.
// A nil date hashes as an empty date field.
func (g *Generator) GenerateContentHash(recipient string, date *time.Time, flavors []string) string {
	dateISO := ""
	if date != nil {
		dateISO = date.Format("2006-01-02")
	}

	content := fmt.Sprintf("%s|%s|%s", strings.ToLower(recipient), dateISO, strings.Join(flavors, "\n"))
	hash := sha256.Sum256([]byte(content))

	return fmt.Sprintf("%x", hash)
}

// MessageID returns a Message-ID unique to one send:
//
//	<content hash prefix>.<sentAt unix nanos, base 36>.<random hex>@domain
//
// Every call returns a different ID, even for identical content and sentAt.
func (g *Generator) MessageID(recipient string, date *time.Time, flavors []string, sentAt time.Time) string {
	return fmt.Sprintf("<%s.%s.%s@%s>",
		g.GenerateContentHash(recipient, date, flavors)[:24],
		strconv.FormatInt(sentAt.UnixNano(), 36),
		nonce(),
		g.domain,
	)
}

func nonce() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
