package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flavorwatch/internal/config"
	"flavorwatch/internal/observability"
)

func TestBuildMessage(t *testing.T) {
	now := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)
	raw := string(buildMessage(Message{
		MessageID: "<abc@example.com>",
		From:      "Joe Lee <joe@example.com>",
		To:        "fan@example.com",
		Subject:   "Joe's Ice Cream has Peachy Kiwi!\r\nBcc: evil@example.com",
		Body:      "Flavors:\n\nChocolate\nPeachy Kiwi",
	}, now))

	head, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)

	assert.Contains(t, head, "From: Joe Lee <joe@example.com>\r\n")
	assert.Contains(t, head, "To: fan@example.com\r\n")
	assert.Contains(t, head, "Subject: Joe's Ice Cream has Peachy Kiwi!  Bcc: evil@example.com\r\n")
	assert.Contains(t, head, "Message-Id: <abc@example.com>\r\n")
	assert.Contains(t, head, "Date: Thu, 05 Jun 2025 09:00:00 +0000\r\n")
	assert.Contains(t, head, "Content-Type: text/plain; charset=UTF-8")
	assert.NotContains(t, head, "\r\nBcc:")
	assert.Equal(t, "Flavors:\r\n\r\nChocolate\r\nPeachy Kiwi", body)
}

func TestNewSMTPSenderValidates(t *testing.T) {
	_, err := NewSMTPSender(config.MailConfig{Port: 465})
	assert.Error(t, err)

	_, err = NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 70000})
	assert.Error(t, err)

	s, err := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 465, Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.NotNil(t, s.auth)
}

func TestNewPicksProvider(t *testing.T) {
	logger := observability.NewNop()

	s, err := New(config.MailConfig{Provider: config.ProviderLog}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = New(config.MailConfig{Provider: config.ProviderResend, ResendKey: "re_test"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)

	s, err = New(config.MailConfig{Provider: config.ProviderSMTP, Host: "smtp.example.com", Port: 587}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = New(config.MailConfig{Provider: "pigeon"}, logger)
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(observability.NewWithWriter(&buf, zerolog.InfoLevel))

	err := sender.Send(context.Background(), Message{To: "fan@example.com", Subject: "Hi", Body: "Mint"})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fan@example.com", entry["to"])
	assert.Equal(t, "Hi", entry["subject"])
	assert.Equal(t, "Mint", entry["body"])
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := startFakeSMTP(t)

	sender, err := NewSMTPSender(config.MailConfig{Host: "127.0.0.1", Port: srv.port})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{
		From:    "Joe Lee <joe@example.com>",
		To:      "fan@example.com",
		Subject: "Peachy Kiwi",
		Body:    "Flavors:\n\nPeachy Kiwi",
	})
	require.NoError(t, err)

	mails := srv.received()
	require.Len(t, mails, 1)
	assert.Equal(t, "joe@example.com", mails[0].from)
	assert.Equal(t, "fan@example.com", mails[0].to)
	assert.Contains(t, mails[0].data, "Subject: Peachy Kiwi")
}

func TestSMTPSenderRejectedRecipient(t *testing.T) {
	srv := startFakeSMTP(t)

	sender, err := NewSMTPSender(config.MailConfig{Host: "127.0.0.1", Port: srv.port})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{From: "joe@example.com", To: "bounce@example.com"})
	assert.ErrorContains(t, err, "rcpt to")
	assert.Empty(t, srv.received())
}

func TestSMTPSenderInvalidAddress(t *testing.T) {
	sender, err := NewSMTPSender(config.MailConfig{Host: "127.0.0.1", Port: 25})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{From: "joe@example.com", To: "not an address"})
	assert.ErrorContains(t, err, "invalid recipient")
}

type fakeMail struct {
	from, to, data string
}

type fakeSMTP struct {
	port  int

	mu    sync.Mutex
	mails []fakeMail
}

func (f *fakeSMTP) received() []fakeMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeMail(nil), f.mails...)
}

// startFakeSMTP accepts plain SMTP without TLS or AUTH and rejects bounce@ recipients.
func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	srv := &fakeSMTP{port: port}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()
	return srv
}

func (f *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP fake")

	var current fakeMail
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			current = fakeMail{from: strings.Trim(line[len("MAIL FROM:"):], "<> ")}
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			to := strings.Trim(line[len("RCPT TO:"):], "<> ")
			if strings.HasPrefix(to, "bounce@") {
				_ = tp.PrintfLine("550 mailbox unavailable")
				continue
			}
			current.to = to
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			current.data = string(data)
			f.mu.Lock()
			f.mails = append(f.mails, current)
			f.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

