package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// System is the actor recorded for scheduled changes.
var System = models.User{Role: models.RoleAdmin}

// InvoiceSweeper moves Sent invoices past their due date to Overdue.
type InvoiceSweeper struct {
	Store   *state.Store
	Mutator *services.Mutator
	Now     func() time.Time
}

// NewInvoiceSweeper creates a new instance of InvoiceSweeper
func NewInvoiceSweeper(store *state.Store, mutator *services.Mutator) *InvoiceSweeper {
	return &InvoiceSweeper{Store: store, Mutator: mutator, Now: time.Now}
}

// RunSweep updates every overdue invoice through the Mutator and returns how
// many were moved. A failing invoice does not stop the others.
func (s *InvoiceSweeper) RunSweep(ctx context.Context) (int, error) {
	now := s.Now()
	moved := 0
	var errs []error

	for _, inv := range s.Store.Snapshot().Invoices {
		if inv.Status != models.InvoiceSent || inv.DueDate.IsZero() || !inv.DueDate.Before(now) {
			continue
		}
		cmd := &services.Update[models.Invoice]{
			ID:     inv.ID,
			Fields: bson.M{"status": models.InvoiceOverdue},
		}
		if _, err := s.Mutator.Submit(ctx, System, cmd); err != nil {
			errs = append(errs, fmt.Errorf("invoice %s: %w", inv.Number, err))
			continue
		}
		moved++
	}

	logrus.WithFields(logrus.Fields{
		"moved":  moved,
		"failed": len(errs),
	}).Info("Invoice sweep completed")
	return moved, errors.Join(errs...)
}
