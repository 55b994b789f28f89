package content

import (
	"context"
	"fmt"
)

// fallbackTemplates are the static defaults used when AI generation is
// unavailable or fails mid-request.
var fallbackTemplates = map[string]Message{
	"discovery_intro": {
		Subject: "Helping %s grow",
		Body:    "Hi %s,\n\nWe help clinics like yours fill their calendars with qualified patients. Would you be open to a quick look at how it works?\n\nBest,\nThe Outreach Team",
	},
	"nurture_intro": {
		Subject: "A quick idea for %s",
		Body:    "Hi %s,\n\nMost clinics we talk to lose bookings simply because follow-up slips through the cracks. We automate that. Worth a look?\n\nBest,\nThe Outreach Team",
	},
	"nurture_value": {
		Subject: "What other clinics are seeing",
		Body:    "Hi %s,\n\nClinics using automated follow-up typically see 20-30%% more booked consultations in the first month. Happy to share how that breaks down for a practice your size.\n\nBest,\nThe Outreach Team",
	},
	"nurture_close": {
		Subject: "Last note from us",
		Body:    "Hi %s,\n\nI'll close the loop here. If filling your calendar ever becomes a priority, we're easy to find.\n\nBest,\nThe Outreach Team",
	},
	"reactivation": {
		Subject: "We'd love to have %s back",
		Body:    "Hi %s,\n\nIt's been a while. We've shipped a lot since you last looked; if you're still working on patient volume, a five-minute catch-up might be worth it.\n\nBest,\nThe Outreach Team",
	},
	"demo_followup": {
		Subject: "Your demo with us",
		Body:    "Hi %s,\n\nJust confirming the next step for your demo. Reply here and we'll get a time on the calendar.\n\nBest,\nThe Outreach Team",
	},
	"closer_followup": {
		Subject: "Next steps for %s",
		Body:    "Hi %s,\n\nFollowing up on our conversation. Happy to answer anything outstanding and get you set up whenever you're ready.\n\nBest,\nThe Outreach Team",
	},
	"revenue_welcome": {
		Subject: "Welcome aboard, %s",
		Body:    "Hi %s,\n\nWelcome! Your account is live and your onboarding specialist will reach out shortly with the first steps.\n\nBest,\nThe Outreach Team",
	},
	"client_success_report": {
		Subject: "Your weekly results",
		Body:    "Hi %s,\n\nHere is the summary of outreach activity on your account this period. Reply with any questions.\n\nBest,\nThe Outreach Team",
	},
}

var defaultFallback = Message{
	Subject: "A note for %s",
	Body:    "Hi %s,\n\nJust reaching out to see how things are going.\n\nBest,\nThe Outreach Team",
}

// StaticGenerator renders the built-in templates without any external call.
type StaticGenerator struct{}

// Generate never fails: unknown template keys get the generic default.
func (StaticGenerator) Generate(_ context.Context, tc Context) (Message, error) {
	tpl, ok := fallbackTemplates[tc.Template]
	if !ok {
		tpl = defaultFallback
	}

	name := tc.LeadName
	if name == "" {
		name = "there"
	}

	msg := Message{
		Subject: tpl.Subject,
		Body:    fmt.Sprintf(tpl.Body, name),
	}
	if hasPlaceholder(tpl.Subject) {
		msg.Subject = fmt.Sprintf(tpl.Subject, name)
	}
	return msg, nil
}

func hasPlaceholder(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '%' && s[i+1] == 's' {
			return true
		}
	}
	return false
}
