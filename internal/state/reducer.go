package state

import (
	"slices"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpAddReader unions Reader into the readBy set of chat message ID.
	OpAddReader Op = "add_reader"
)

// Delta is one remote write result to merge into the local state.
type Delta struct {
	Table string
	Op    Op
	Row   models.Row
	ID    primitive.ObjectID

	Reader primitive.ObjectID
}

func Inserted(table string, row models.Row) Delta {
	return Delta{Table: table, Op: OpInsert, Row: row, ID: row.Key()}
}

func Updated(table string, row models.Row) Delta {
	return Delta{Table: table, Op: OpUpdate, Row: row, ID: row.Key()}
}

func Deleted(table string, id primitive.ObjectID) Delta {
	return Delta{Table: table, Op: OpDelete, ID: id}
}

// ReadBy marks chat message id as read by reader. It merges into whatever
// readBy the message holds when the delta is applied.
func ReadBy(id, reader primitive.ObjectID) Delta {
	return Delta{Table: models.TableChatMessages, Op: OpAddReader, ID: id, Reader: reader}
}

// Apply returns s with d merged in. Inserts append (or replace a row that is
// already present), updates replace by id, deletes filter by id, and add_reader
// unions into readBy. s is not modified.
func Apply(s State, d Delta) State {
	switch d.Table {
	case models.TableUsers:
		s.Users = applyRows(s.Users, d)
	case models.TableClients:
		s.Clients = applyRows(s.Clients, d)
	case models.TableProjects:
		s.Projects = applyRows(s.Projects, d)
	case models.TableTasks:
		s.Tasks = applyRows(s.Tasks, d)
	case models.TableTimeLogs:
		s.TimeLogs = applyRows(s.TimeLogs, d)
	case models.TableChatMessages:
		if d.Op == OpAddReader {
			s.ChatMessages = addReader(s.ChatMessages, d)
		} else {
			s.ChatMessages = applyRows(s.ChatMessages, d)
		}
	case models.TableInvoices:
		s.Invoices = applyRows(s.Invoices, d)
	case models.TableProjectFiles:
		s.Files = applyRows(s.Files, d)
	case models.TableFeedback:
		s.Feedback = applyRows(s.Feedback, d)
	case models.TableActivityLogs:
		s.ActivityLogs = applyRows(s.ActivityLogs, d)
	case models.TableNotifications:
		s.Notifications = applyRows(s.Notifications, d)
	default:
		logrus.WithField("table", d.Table).Warn("Delta for unknown table ignored")
	}
	return s
}

func applyRows[T models.Row](rows []T, d Delta) []T {
	switch d.Op {
	case OpInsert, OpUpdate:
		row, ok := d.Row.(T)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"table": d.Table,
				"op":    d.Op,
			}).Warn("Delta row has the wrong type")
			return rows
		}
		i := slices.IndexFunc(rows, func(r T) bool { return r.Key() == row.Key() })
		if i < 0 && d.Op == OpUpdate {
			return rows
		}
		out := slices.Clone(rows)
		if i >= 0 {
			out[i] = row
		} else {
			out = append(out, row)
		}
		return out
	case OpDelete:
		if !slices.ContainsFunc(rows, func(r T) bool { return r.Key() == d.ID }) {
			return rows
		}
		return slices.DeleteFunc(slices.Clone(rows), func(r T) bool { return r.Key() == d.ID })
	}
	return rows
}

func addReader(msgs []models.ChatMessage, d Delta) []models.ChatMessage {
	i := slices.IndexFunc(msgs, func(m models.ChatMessage) bool { return m.ID == d.ID })
	if i < 0 || slices.Contains(msgs[i].ReadBy, d.Reader) {
		return msgs
	}
	out := slices.Clone(msgs)
	out[i].ReadBy = append(slices.Clone(msgs[i].ReadBy), d.Reader)
	return out
}
