// Package content holds the domain types for editable site content: rows as
// stored remotely, fetch results, user-facing notifications, the static
// fallback copy and the page layout.
package content

import "time"

// ContentRow is one name/value pair as persisted by the remote store.
type ContentRow struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FetchResult is the total outcome of a bulk fetch. Content always holds a
// value for every requested name (remote value or fallback); Err describes
// why fallback values were used, if they were.
type FetchResult struct {
	Content map[string]string `json:"content"`
	Err     error             `json:"-"`
}

// ErrorMessage returns Err as text, or "" on success.
func (r *FetchResult) ErrorMessage() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// NotificationLevel is the severity of a user-visible notification.
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyWarning NotificationLevel = "warning"
	NotifyError   NotificationLevel = "error"
)

// Notification is a toast-level message about a content operation.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Name    string            `json:"name,omitempty"`
	Time    time.Time         `json:"time"`
}
