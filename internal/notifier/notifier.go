package notifier

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"flavorwatch/internal/checksum"
	"flavorwatch/internal/config"
	"flavorwatch/internal/flavor"
	"flavorwatch/internal/mailer"
	"flavorwatch/internal/observability"
)

const bodyDateFormat = "Monday, January 2, 2006"

// Report records the delivery outcome for each recipient.
type Report struct {
	Delivered []string
	Failed    map[string]error
}

// Notifier builds one message per recipient from a fixed template.
type Notifier struct {
	sender      mailer.Sender
	recipients  []string
	from        string
	shopName    string
	sendTimeout time.Duration
	ids         *checksum.Generator
	logger      *observability.Logger
	now         func() time.Time
}

// New copies recipients; the list is fixed for the life of the Notifier.
func New(sender mailer.Sender, cfg config.MailConfig, sendTimeout time.Duration, logger *observability.Logger) *Notifier {
	return &Notifier{
		sender:      sender,
		recipients:  append([]string(nil), cfg.Recipients...),
		from:        formatFrom(cfg.FromName, cfg.FromAddress),
		shopName:    cfg.ShopName,
		sendTimeout: sendTimeout,
		ids:         checksum.NewGenerator(domainOf(cfg.FromAddress)),
		logger:      logger,
		now:         time.Now,
	}
}

// Recipients returns the recipient list in delivery order.
func (n *Notifier) Recipients() []string {
	return append([]string(nil), n.recipients...)
}

// Notify sends to every recipient in order. It never fails as a whole.
func (n *Notifier) Notify(ctx context.Context, res flavor.Result, matched []string) Report {
	report := Report{Failed: make(map[string]error)}

	for _, to := range n.recipients {
		msg := n.Message(res, matched, to)

		if err := n.send(ctx, msg); err != nil {
			report.Failed[to] = err
			n.logger.Error("Email delivery failed",
				"to", to,
				"message_id", msg.MessageID,
				"error", err.Error(),
			)
			continue
		}

		report.Delivered = append(report.Delivered, to)
		n.logger.Info("Email sent", "to", to, "message_id", msg.MessageID)
	}

	return report
}

func (n *Notifier) send(ctx context.Context, msg mailer.Message) error {
	if n.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.sendTimeout)
		defer cancel()
	}
	return n.sender.Send(ctx, msg)
}

// Message builds the email for one recipient. Everything except MessageID is a function of
// the result, the matched flavors and the recipient; MessageID is new on every call.
func (n *Notifier) Message(res flavor.Result, matched []string, to string) mailer.Message {
	return mailer.Message{
		MessageID: n.ids.MessageID(to, res.Date, res.Flavors, n.now()),
		From:      n.from,
		To:        to,
		Subject:   n.subject(matched),
		Body:      body(res),
	}
}

func (n *Notifier) subject(matched []string) string {
	if len(matched) == 0 {
		return fmt.Sprintf("%s flavors of the day", n.shopName)
	}
	return fmt.Sprintf("%s has %s!", n.shopName, strings.Join(matched, ", "))
}

func body(res flavor.Result) string {
	var b strings.Builder
	b.WriteString("Flavors:\n\n")
	b.WriteString(strings.Join(res.Flavors, "\n"))
	b.WriteString("\n\n")
	if res.Date != nil {
		b.WriteString(res.Date.Format(bodyDateFormat))
	} else {
		b.WriteString("Date unknown")
	}
	return b.String()
}

func formatFrom(name, address string) string {
	if strings.TrimSpace(name) == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return ""
}
