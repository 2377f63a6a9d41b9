package models

// Remote table names. They are the wire contract with the backend schema.
const (
	TableUsers         = "users"
	TableClients       = "clients"
	TableProjects      = "projects"
	TableTasks         = "tasks"
	TableTimeLogs      = "time_logs"
	TableChatMessages  = "chat_messages"
	TableInvoices      = "invoices"
	TableProjectFiles  = "project_files"
	TableFeedback      = "feedback"
	TableActivityLogs  = "activity_logs"
	TableNotifications = "panel_notifications"
)

// TableName returns the remote table that stores rows like row.
func TableName(row interface{}) string {
	switch row.(type) {
	case User, *User:
		return TableUsers
	case Client, *Client:
		return TableClients
	case Project, *Project:
		return TableProjects
	case Task, *Task:
		return TableTasks
	case TimeLog, *TimeLog:
		return TableTimeLogs
	case ChatMessage, *ChatMessage:
		return TableChatMessages
	case Invoice, *Invoice:
		return TableInvoices
	case ProjectFile, *ProjectFile:
		return TableProjectFiles
	case Feedback, *Feedback:
		return TableFeedback
	case ActivityLog, *ActivityLog:
		return TableActivityLogs
	case PanelNotification, *PanelNotification:
		return TableNotifications
	}
	return ""
}
