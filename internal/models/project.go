package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectNotStarted ProjectStatus = "Not Started"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectOnHold     ProjectStatus = "On Hold"
	ProjectCompleted  ProjectStatus = "Completed"
)

// Project is a piece of client work. The two id-array columns keep their
// remote names (assigned_employee_ids, assigned_client_ids).
type Project struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name                string               `bson:"name" json:"name"`
	Description         string               `bson:"description" json:"description"`
	ClientID            primitive.ObjectID   `bson:"client_id" json:"clientId"`
	Status              ProjectStatus        `bson:"status" json:"status"`
	AssignedEmployeeIDs []primitive.ObjectID `bson:"assigned_employee_ids" json:"assignedEmployeeIds"`
	AssignedClientIDs   []primitive.ObjectID `bson:"assigned_client_ids" json:"assignedClientIds"`
	Budget              float64              `bson:"budget" json:"budget"`
	Deadline            time.Time            `bson:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedAt           time.Time            `bson:"created_at" json:"createdAt"`
}

func (p Project) Key() primitive.ObjectID { return p.ID }

// HasEmployee reports whether the employee is assigned to the project.
func (p Project) HasEmployee(id primitive.ObjectID) bool {
	for _, e := range p.AssignedEmployeeIDs {
		if e == id {
			return true
		}
	}
	return false
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectNotStarted, ProjectInProgress, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}
