package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "Paid"
	InvoiceSent    InvoiceStatus = "Sent"
	InvoiceDraft   InvoiceStatus = "Draft"
	InvoiceOverdue InvoiceStatus = "Overdue"
)

type Invoice struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID `bson:"client_id" json:"clientId"`
	ProjectID primitive.ObjectID `bson:"project_id,omitempty" json:"projectId,omitempty"`
	Number    string             `bson:"number" json:"number"`
	Amount    float64            `bson:"amount" json:"amount"`
	Status    InvoiceStatus      `bson:"status" json:"status"`
	IssueDate time.Time          `bson:"issue_date" json:"issueDate"`
	DueDate   time.Time          `bson:"due_date" json:"dueDate"`
}

func (i Invoice) Key() primitive.ObjectID { return i.ID }

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoicePaid, InvoiceSent, InvoiceDraft, InvoiceOverdue:
		return true
	}
	return false
}
