// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Now is a fixed clock value with BSON (millisecond) precision.
var Now = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func Admin(name string) models.User {
	return user(name, models.RoleAdmin)
}

func Employee(name string) models.User {
	return user(name, models.RoleEmployee)
}

// ClientUser returns a client-role user whose e-mail matches ClientFor(name).
func ClientUser(name string) models.User {
	return user(name, models.RoleClient)
}

func user(name string, role models.Role) models.User {
	return models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		CreatedAt: Now,
	}
}

// ClientFor returns a client profile whose contact e-mail matches u.
func ClientFor(u models.User) models.Client {
	return models.Client{
		ID:           primitive.NewObjectID(),
		Name:         u.Name + " Ltd",
		Company:      u.Name + " Ltd",
		ContactEmail: u.Email,
		CreatedAt:    Now,
	}
}

func Project(name string, client models.Client, status models.ProjectStatus, employees ...models.User) models.Project {
	p := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		ClientID:    client.ID,
		Status:      status,
		CreatedAt:   Now,
		Deadline:    Now.Add(30 * 24 * time.Hour),
		Budget:      1000,
		Description: name + " description",
	}
	for _, e := range employees {
		p.AssignedEmployeeIDs = append(p.AssignedEmployeeIDs, e.ID)
	}
	return p
}

func Task(title string, project models.Project, employee models.User, status models.TaskStatus) models.Task {
	return models.Task{
		ID:         primitive.NewObjectID(),
		ProjectID:  project.ID,
		EmployeeID: employee.ID,
		Title:      title,
		Status:     status,
		CreatedAt:  Now,
	}
}

func Message(project models.Project, sender models.User, text string, readBy ...models.User) models.ChatMessage {
	m := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		ProjectID: project.ID,
		SenderID:  sender.ID,
		Text:      text,
		Timestamp: Now,
		ReadBy:    []primitive.ObjectID{},
	}
	for _, u := range readBy {
		m.ReadBy = append(m.ReadBy, u.ID)
	}
	return m
}

func Invoice(client models.Client, status models.InvoiceStatus) models.Invoice {
	return models.Invoice{
		ID:        primitive.NewObjectID(),
		ClientID:  client.ID,
		Number:    "INV-" + client.Name,
		Amount:    500,
		Status:    status,
		IssueDate: Now,
		DueDate:   Now.Add(14 * 24 * time.Hour),
	}
}

func Notification(owner models.User, kind models.NotificationType, read bool) models.PanelNotification {
	return models.PanelNotification{
		ID:        primitive.NewObjectID(),
		UserID:    owner.ID,
		Type:      kind,
		Title:     string(kind),
		Timestamp: Now,
		Read:      read,
	}
}
