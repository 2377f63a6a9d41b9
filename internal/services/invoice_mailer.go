package services

import (
	"context"
	"fmt"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/sirupsen/logrus"
)

// EmailSender delivers one plain text e-mail.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// InvoiceSentMailer returns a commit hook that e-mails the client contact
// when an invoice becomes Sent. Delivery is best effort.
func InvoiceSentMailer(sender EmailSender) CommitHook {
	return func(_ context.Context, before state.State, deltas []state.Delta) {
		for _, d := range deltas {
			inv, ok := d.Row.(models.Invoice)
			if !ok || inv.Status != models.InvoiceSent {
				continue
			}
			if prev, ok := before.Invoice(inv.ID); ok && prev.Status == models.InvoiceSent {
				continue
			}
			client, ok := before.Client(inv.ClientID)
			if !ok || client.ContactEmail == "" {
				continue
			}

			subject := fmt.Sprintf("Invoice %s", inv.Number)
			body := fmt.Sprintf("Hello %s,\n\nInvoice %s for %.2f is now due on %s.\n",
				client.Name, inv.Number, inv.Amount, inv.DueDate.Format("2006-01-02"))
			if err := sender.SendEmail(client.ContactEmail, subject, body); err != nil {
				logrus.WithError(err).WithField("invoiceID", inv.ID.Hex()).Warn("Failed to send invoice email")
				continue
			}
			logrus.WithField("invoiceID", inv.ID.Hex()).Info("Invoice email sent")
		}
	}
}
