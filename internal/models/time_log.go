package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimeLog records hours an employee spent on a project.
type TimeLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID `bson:"project_id" json:"projectId"`
	TaskID      primitive.ObjectID `bson:"task_id,omitempty" json:"taskId,omitempty"`
	EmployeeID  primitive.ObjectID `bson:"employee_id" json:"employeeId"`
	Hours       float64            `bson:"hours" json:"hours"`
	Date        time.Time          `bson:"date" json:"date"`
	Description string             `bson:"description" json:"description"`
}

func (l TimeLog) Key() primitive.ObjectID { return l.ID }
