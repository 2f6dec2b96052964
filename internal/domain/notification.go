package domain

import "github.com/google/uuid"

// NotificationKind names the activity that triggered a notification.
type NotificationKind string

// Notification kinds, one per mutating task operation.
const (
	NotificationTaskCreated    NotificationKind = "created"
	NotificationCommentAdded   NotificationKind = "commented"
	NotificationTaskClosed     NotificationKind = "closed"
	NotificationFileAttached   NotificationKind = "file_attached"
	NotificationFileDownloaded NotificationKind = "file_downloaded"
)

// Notification asks the dispatcher to mail the current state of a task to
// Recipients. It is a value computed at commit time; the dispatcher loads
// the task snapshot itself when it runs.
type Notification struct {
	TaskID     uuid.UUID        `json:"task_id"`
	Kind       NotificationKind `json:"kind"`
	Recipients []string         `json:"recipients"`
}

// Headline returns the event line rendered at the top of the message.
func (k NotificationKind) Headline() string {
	switch k {
	case NotificationTaskCreated:
		return "Task created"
	case NotificationCommentAdded:
		return "New comment"
	case NotificationTaskClosed:
		return "Task closed"
	case NotificationFileAttached:
		return "Attachment added"
	case NotificationFileDownloaded:
		return "Attachment downloaded"
	default:
		return "Task updated"
	}
}

// MergeRecipients returns the de-duplicated union of the given address lists,
// keeping first-seen order. Addresses are normalized and blanks dropped.
func MergeRecipients(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, list := range lists {
		for _, email := range list {
			email = NormalizeEmail(email)
			if email == "" {
				continue
			}
			if _, ok := seen[email]; ok {
				continue
			}
			seen[email] = struct{}{}
			merged = append(merged, email)
		}
	}
	return merged
}
