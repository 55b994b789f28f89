package domain

import "time"

// The lead lifecycle state machine:
//
//	new → contacted → warm ⇄ replied → demo_booked → won | lost
//
// warm and replied are mutually reachable from each other and from contacted;
// demo_booked is reachable from any non-terminal state; won and lost are
// terminal. An attempted transition on a terminal lead is a no-op, never an
// error. Every Mark* call returns whether the transition was applied so
// callers can decide whether a storage write is needed.

// allowedFrom maps a target status to the source statuses automation may
// transition from.
var allowedFrom = map[Status]map[Status]bool{
	StatusContacted: {StatusNew: true},
	StatusWarm:      {StatusNew: true, StatusContacted: true, StatusReplied: true},
	StatusReplied:   {StatusNew: true, StatusContacted: true, StatusWarm: true},
}

func transition(lead *Lead, to Status) bool {
	if IsTerminal(lead.Status) {
		return false
	}
	sources, ok := allowedFrom[to]
	if !ok || !sources[lead.Status] {
		return false
	}
	lead.Status = to
	return true
}

// MarkContacted moves the lead from new to contacted and stamps the contact
// time.
func MarkContacted(lead *Lead, now time.Time) bool {
	if !transition(lead, StatusContacted) {
		return false
	}
	lead.LastContactedAt = &now
	return true
}

// MarkWarm moves the lead to warm from new, contacted, or replied.
func MarkWarm(lead *Lead) bool {
	return transition(lead, StatusWarm)
}

// MarkReplied moves the lead to replied from new, contacted, or warm.
func MarkReplied(lead *Lead) bool {
	return transition(lead, StatusReplied)
}

// MarkDemoBooked moves the lead to demo_booked from any non-terminal state.
func MarkDemoBooked(lead *Lead) bool {
	if IsTerminal(lead.Status) || lead.Status == StatusDemoBooked {
		return false
	}
	lead.Status = StatusDemoBooked
	return true
}

// MarkWon moves the lead to won from any state except lost.
func MarkWon(lead *Lead) bool {
	if lead.Status == StatusLost || lead.Status == StatusWon {
		return false
	}
	lead.Status = StatusWon
	return true
}

// MarkLost moves the lead to lost from any state except won.
func MarkLost(lead *Lead) bool {
	if lead.Status == StatusWon || lead.Status == StatusLost {
		return false
	}
	lead.Status = StatusLost
	return true
}

// Touch records an outbound contact without changing status.
func Touch(lead *Lead, now time.Time) {
	lead.LastContactedAt = &now
}
