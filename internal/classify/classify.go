package classify

import (
	"strings"

	"inbox-rpa/internal/mailbox"
)

// Intent is the triage category assigned to one message.
type Intent int

const (
	// IntentIgnored means the message matched neither rule and is dropped.
	IntentIgnored Intent = iota
	// IntentReportRequest means the message asks for the outcome export.
	IntentReportRequest
	// IntentLinkAction means the message carries an actionable link.
	IntentLinkAction
)

// reportKeyword triggers the report path no matter who sent the message.
const reportKeyword = "REPORTE"

// String returns the intent name for logging.
func (i Intent) String() string {
	switch i {
	case IntentReportRequest:
		return "report_request"
	case IntentLinkAction:
		return "link_action"
	default:
		return "ignored"
	}
}

// Classify assigns an intent to a message. The policy is fixed: the report
// keyword in subject or body wins regardless of sender; otherwise a message
// from the configured sender is a link action; everything else is ignored.
// Total over any message shape; a missing body compares as the empty string.
func Classify(msg mailbox.Message, senderFilter string) Intent {
	if strings.Contains(strings.ToUpper(msg.Subject), reportKeyword) ||
		strings.Contains(strings.ToUpper(msg.Text), reportKeyword) {
		return IntentReportRequest
	}

	if strings.EqualFold(msg.From, senderFilter) {
		return IntentLinkAction
	}

	return IntentIgnored
}
