package notify

import (
	"strings"

	"github.com/phrazzld/jiralike-api/internal/domain"
)

// Render builds the subject and plain-text body describing the current
// state of a task. Every recipient of a notification gets the same text.
//
//	<event line>
//
//	<description>
//	from user <owner>
//
//	Comments:
//	<text> from user <author>
func Render(detail *domain.TaskDetail, kind domain.NotificationKind) (subject, body string) {
	var b strings.Builder

	b.WriteString(kind.Headline())
	b.WriteString(": ")
	b.WriteString(detail.Headline)
	b.WriteString("\n\n")

	b.WriteString(detail.Description)
	b.WriteString("\nfrom user ")
	b.WriteString(displayName(detail.OwnerUsername))
	b.WriteString("\n")

	if len(detail.Comments) > 0 {
		b.WriteString("\nComments:\n")
		for _, c := range detail.Comments {
			b.WriteString(c.Text)
			b.WriteString(" from user ")
			b.WriteString(displayName(c.OwnerUsername))
			b.WriteString("\n")
		}
	}

	if detail.File != nil {
		b.WriteString("\nAttachment: ")
		b.WriteString(detail.File.Name)
		b.WriteString("\n")
	}

	return detail.Headline, b.String()
}

// displayName is the name shown for content whose author may be deleted.
func displayName(username string) string {
	if username == "" {
		return "anonymous"
	}
	return username
}
