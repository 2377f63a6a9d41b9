package services

import (
	"fmt"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var entityNames = map[string]string{
	models.TableUsers:         "user",
	models.TableClients:       "client",
	models.TableProjects:      "project",
	models.TableTasks:         "task",
	models.TableTimeLogs:      "time log",
	models.TableChatMessages:  "message",
	models.TableInvoices:      "invoice",
	models.TableProjectFiles:  "file",
	models.TableFeedback:      "feedback",
	models.TableActivityLogs:  "activity",
	models.TableNotifications: "notification",
}

func entityName(table string) string {
	if name, ok := entityNames[table]; ok {
		return name
	}
	return table
}

func requireAdmin(actor models.User) error {
	if actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// prepareInsert fills server-side defaults on row and checks that actor may create it.
func prepareInsert(s state.State, actor models.User, row models.Row, now time.Time) (models.Row, error) {
	switch r := row.(type) {
	case models.User:
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r, validateUser(s, r)

	case models.Client:
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.ContactEmail = strings.ToLower(strings.TrimSpace(r.ContactEmail))
		return r, validateClient(r)

	case models.Project:
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
		if r.Status == "" {
			r.Status = models.ProjectNotStarted
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r, validateProject(s, r)

	case models.Task:
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
		if r.Status == "" {
			r.Status = models.TaskToDo
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r, validateTask(s, r)

	case models.TimeLog:
		switch actor.Role {
		case models.RoleAdmin:
		case models.RoleEmployee:
			if r.EmployeeID.IsZero() {
				r.EmployeeID = actor.ID
			}
			if r.EmployeeID != actor.ID || !scope.CanSeeProject(actor, r.ProjectID, s) {
				return nil, ErrForbidden
			}
		default:
			return nil, ErrForbidden
		}
		if r.Date.IsZero() {
			r.Date = now
		}
		return r, validateTimeLog(s, r)

	case models.Invoice:
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
		if r.Status == "" {
			r.Status = models.InvoiceDraft
		}
		if r.IssueDate.IsZero() {
			r.IssueDate = now
		}
		if r.Number == "" {
			r.Number = nextInvoiceNumber(s, r.IssueDate)
		}
		return r, validateInvoice(s, r)

	case models.ProjectFile:
		if !scope.CanSeeProject(actor, r.ProjectID, s) {
			return nil, ErrForbidden
		}
		r.UploaderID = actor.ID
		if r.UploadedAt.IsZero() {
			r.UploadedAt = now
		}
		if strings.TrimSpace(r.Name) == "" || r.URL == "" {
			return nil, invalid("file name and url are required")
		}
		return r, nil

	case models.Feedback:
		switch actor.Role {
		case models.RoleClient:
			client, ok := scope.ClientFor(actor, s.Clients)
			if !ok {
				return nil, invalid("no client profile matches %s", actor.Email)
			}
			r.ClientID = client.ID
			r.UserID = actor.ID
			if !scope.CanSeeProject(actor, r.ProjectID, s) {
				return nil, ErrForbidden
			}
		case models.RoleAdmin:
			if r.UserID.IsZero() {
				r.UserID = actor.ID
			}
		default:
			return nil, ErrForbidden
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r, validateFeedback(s, r)

	case models.ChatMessage:
		if !scope.CanSeeProject(actor, r.ProjectID, s) {
			return nil, ErrForbidden
		}
		r.SenderID = actor.ID
		r.ReadBy = []primitive.ObjectID{}
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		if strings.TrimSpace(r.Text) == "" {
			return nil, invalid("message text is required")
		}
		return r, nil
	}

	// Activity logs and panel notifications are written by the service itself.
	return nil, ErrForbidden
}

// checkUpdate decides whether actor may turn before into after by writing fields.
func checkUpdate(s state.State, actor models.User, before, after models.Row, fields bson.M) error {
	switch b := before.(type) {
	case models.User:
		if err := requireAdmin(actor); err != nil {
			return err
		}
		a := after.(models.User)
		if b.Role == models.RoleAdmin && a.Role != models.RoleAdmin && len(s.Admins()) <= 1 {
			return ErrLastAdmin
		}
		return validateUser(s, a)

	case models.Client:
		if err := requireAdmin(actor); err != nil {
			return err
		}
		return validateClient(after.(models.Client))

	case models.Project:
		if err := requireAdmin(actor); err != nil {
			return err
		}
		return validateProject(s, after.(models.Project))

	case models.Task:
		switch {
		case actor.Role == models.RoleAdmin:
		case actor.Role == models.RoleEmployee && b.EmployeeID == actor.ID && onlyColumns(fields, "status"):
		default:
			return ErrForbidden
		}
		return validateTask(s, after.(models.Task))

	case models.TimeLog:
		a := after.(models.TimeLog)
		if actor.Role != models.RoleAdmin && (b.EmployeeID != actor.ID || a.EmployeeID != actor.ID) {
			return ErrForbidden
		}
		return validateTimeLog(s, a)

	case models.Invoice:
		if err := requireAdmin(actor); err != nil {
			return err
		}
		return validateInvoice(s, after.(models.Invoice))

	case models.ProjectFile:
		if err := requireAdmin(actor); err != nil {
			return err
		}
		return nil

	case models.Feedback:
		if actor.Role != models.RoleAdmin && b.UserID != actor.ID {
			return ErrForbidden
		}
		if !onlyColumns(fields, "rating", "comment") {
			return invalid("only rating and comment can change")
		}
		return validateFeedback(s, after.(models.Feedback))

	case models.PanelNotification:
		if b.UserID != actor.ID {
			return ErrForbidden
		}
		if !onlyColumns(fields, "read") {
			return invalid("only read can change")
		}
		return nil
	}
	return ErrForbidden
}

func checkDelete(s state.State, actor models.User, row models.Row) error {
	switch r := row.(type) {
	case models.User:
		if err := requireAdmin(actor); err != nil {
			return err
		}
		if r.Role == models.RoleAdmin && len(s.Admins()) <= 1 {
			return ErrLastAdmin
		}
		return nil
	case models.TimeLog:
		if actor.Role != models.RoleAdmin && r.EmployeeID != actor.ID {
			return ErrForbidden
		}
		return nil
	case models.ProjectFile:
		if actor.Role != models.RoleAdmin && r.UploaderID != actor.ID {
			return ErrForbidden
		}
		return nil
	case models.PanelNotification:
		if r.UserID != actor.ID {
			return ErrForbidden
		}
		return nil
	}
	return requireAdmin(actor)
}

func validateUser(s state.State, u models.User) error {
	if strings.TrimSpace(u.Name) == "" {
		return invalid("name is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return invalid("email %q is not valid", u.Email)
	}
	if !u.Role.Valid() {
		return invalid("unknown role %q", u.Role)
	}
	for _, other := range s.Users {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return invalid("email %s is already in use", u.Email)
		}
	}
	return nil
}

func validateClient(c models.Client) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name is required")
	}
	if _, err := mail.ParseAddress(c.ContactEmail); err != nil {
		return invalid("contact email %q is not valid", c.ContactEmail)
	}
	return nil
}

func validateProject(s state.State, p models.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name is required")
	}
	if !p.Status.Valid() {
		return invalid("unknown status %q", p.Status)
	}
	if _, ok := s.Client(p.ClientID); !ok {
		return invalid("client %s does not exist", p.ClientID.Hex())
	}
	for _, id := range p.AssignedEmployeeIDs {
		if u, ok := s.User(id); !ok || u.Role != models.RoleEmployee {
			return invalid("%s is not an employee", id.Hex())
		}
	}
	if p.Budget < 0 {
		return invalid("budget cannot be negative")
	}
	return nil
}

func validateTask(s state.State, t models.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("title is required")
	}
	if !t.Status.Valid() {
		return invalid("unknown status %q", t.Status)
	}
	if _, ok := s.Project(t.ProjectID); !ok {
		return invalid("project %s does not exist", t.ProjectID.Hex())
	}
	if !t.EmployeeID.IsZero() {
		if u, ok := s.User(t.EmployeeID); !ok || u.Role != models.RoleEmployee {
			return invalid("%s is not an employee", t.EmployeeID.Hex())
		}
	}
	return nil
}

func validateTimeLog(s state.State, l models.TimeLog) error {
	if l.Hours <= 0 || l.Hours > 24 {
		return invalid("hours must be between 0 and 24")
	}
	if _, ok := s.Project(l.ProjectID); !ok {
		return invalid("project %s does not exist", l.ProjectID.Hex())
	}
	return nil
}

func validateInvoice(s state.State, inv models.Invoice) error {
	if !inv.Status.Valid() {
		return invalid("unknown status %q", inv.Status)
	}
	if inv.Amount < 0 {
		return invalid("amount cannot be negative")
	}
	if _, ok := s.Client(inv.ClientID); !ok {
		return invalid("client %s does not exist", inv.ClientID.Hex())
	}
	if !inv.DueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		return invalid("due date is before the issue date")
	}
	return nil
}

func validateFeedback(s state.State, f models.Feedback) error {
	if f.Rating < 1 || f.Rating > 5 {
		return invalid("rating must be between 1 and 5")
	}
	if _, ok := s.Project(f.ProjectID); !ok {
		return invalid("project %s does not exist", f.ProjectID.Hex())
	}
	return nil
}

// nextInvoiceNumber follows the highest INV-<year>-<seq> of the issue year,
// so numbers freed by a deletion are never handed out again.
func nextInvoiceNumber(s state.State, issued time.Time) string {
	prefix := fmt.Sprintf("INV-%d-", issued.Year())
	highest := 0
	for _, inv := range s.Invoices {
		seq, ok := strings.CutPrefix(inv.Number, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(seq); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, highest+1)
}

func onlyColumns(fields bson.M, allowed ...string) bool {
	for k := range fields {
		if !slices.Contains(allowed, k) {
			return false
		}
	}
	return true
}

// withoutID returns row with its _id column cleared.
func withoutID[T any](row T) (T, error) {
	var out T
	data, err := bson.Marshal(row)
	if err != nil {
		return out, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return out, err
	}
	delete(doc, "_id")
	if data, err = bson.Marshal(doc); err != nil {
		return out, err
	}
	err = bson.Unmarshal(data, &out)
	return out, err
}

// withFields returns row as it would read after fields were $set on it.
func withFields[T any](row T, fields bson.M) (T, error) {
	var out T
	data, err := bson.Marshal(row)
	if err != nil {
		return out, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return out, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	if data, err = bson.Marshal(doc); err != nil {
		return out, err
	}
	err = bson.Unmarshal(data, &out)
	return out, err
}
