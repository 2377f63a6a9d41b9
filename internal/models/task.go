package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	TaskToDo       TaskStatus = "To Do"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
)

type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID `bson:"project_id" json:"projectId"`
	EmployeeID  primitive.ObjectID `bson:"employee_id" json:"employeeId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Status      TaskStatus         `bson:"status" json:"status"`
	DueDate     time.Time          `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

func (t Task) Key() primitive.ObjectID { return t.ID }

func (s TaskStatus) Valid() bool {
	return s == TaskToDo || s == TaskInProgress || s == TaskCompleted
}
