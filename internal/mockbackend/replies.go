// ABOUTME: Canned AI behaviour for the mock backend
// ABOUTME: Escalates on emergency keywords and derives short titles from first messages

package mockbackend

import (
	"strings"
	"unicode"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/backend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
)

const Greeting = "Hi, I'm the WeCare assistant. Tell me what's bothering you and I'll help you find the right care."

var emergencyKeywords = []string{
	"chest pain",
	"can't breathe",
	"cannot breathe",
	"unconscious",
	"overdose",
	"suicide",
	"severe bleeding",
	"stroke",
	"emergency",
}

// DefaultResponder escalates when the message mentions an emergency keyword.
func DefaultResponder(message string) backend.AIReply {
	lower := strings.ToLower(message)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return backend.AIReply{
				Response:   "This sounds like it could be serious. Please contact emergency services or speak with a doctor right away.",
				Escalation: true,
				EscalationLinks: &chat.EscalationLinks{
					DoctorServices:    DefaultDoctorServices,
					EmergencyServices: DefaultEmergencyServices,
				},
			}
		}
	}
	return backend.AIReply{
		Response: "Thanks for telling me. How long have you been feeling this way, and is anything making it better or worse?",
	}
}

// InferTitle builds a title from the first few words of message.
func InferTitle(message string) string {
	words := strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	if len(words) == 0 {
		return chat.DefaultTitle
	}
	if len(words) > 5 {
		words = words[:5]
	}
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
