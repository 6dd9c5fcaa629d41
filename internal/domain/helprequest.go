package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmergencyType is the category a citizen picks when asking for help.
type EmergencyType string

const (
	EmergencyFlood      EmergencyType = "flood"
	EmergencyFire       EmergencyType = "fire"
	EmergencyEarthquake EmergencyType = "earthquake"
	EmergencyHurricane  EmergencyType = "hurricane"
	EmergencyTornado    EmergencyType = "tornado"
	EmergencyMedical    EmergencyType = "medical"
	EmergencyOther      EmergencyType = "other"
)

var emergencyTypes = []EmergencyType{
	EmergencyFlood, EmergencyFire, EmergencyEarthquake, EmergencyHurricane,
	EmergencyTornado, EmergencyMedical, EmergencyOther,
}

// ParseEmergencyType accepts any casing of a known emergency type.
func ParseEmergencyType(s string) (EmergencyType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range emergencyTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// HelpStatus is the responder workflow state of a request.
type HelpStatus string

const (
	StatusPending    HelpStatus = "pending"
	StatusInProgress HelpStatus = "in-progress"
	StatusResolved   HelpStatus = "resolved"
)

// ParseHelpStatus accepts any casing of a known status.
func ParseHelpStatus(s string) (HelpStatus, bool) {
	switch HelpStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusResolved:
		return StatusResolved, true
	default:
		return "", false
	}
}

// HelpSubmission is the citizen-facing form.
type HelpSubmission struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	ContactInfo   string `json:"contact_info"`
	EmergencyType string `json:"emergency_type"`
	OtherDetails  string `json:"other_emergency_details"`
	Description   string `json:"description"`
}

// Validate checks required fields. The first failure is returned as a
// *ValidationError.
func (s HelpSubmission) Validate() error {
	required := []struct{ field, value string }{
		{"name", s.Name},
		{"location", s.Location},
		{"contact_info", s.ContactInfo},
		{"emergency_type", s.EmergencyType},
		{"description", s.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}
	t, ok := ParseEmergencyType(s.EmergencyType)
	if !ok {
		return &ValidationError{Field: "emergency_type", Message: fmt.Sprintf("unknown type %q", s.EmergencyType)}
	}
	if t == EmergencyOther && strings.TrimSpace(s.OtherDetails) == "" {
		return &ValidationError{Field: "other_emergency_details", Message: "is required when emergency_type is other"}
	}
	return nil
}

// ScoreRequest returns the fields the confidence scorer reads.
func (s HelpSubmission) ScoreRequest() ScoreRequest {
	return ScoreRequest{
		Location:      s.Location,
		EmergencyType: s.EmergencyType,
		OtherDetails:  s.OtherDetails,
	}
}

// HelpRequest is a stored help request.
type HelpRequest struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Location      string        `json:"location"`
	ContactInfo   string        `json:"contact_info"`
	EmergencyType EmergencyType `json:"emergency_type"`
	OtherDetails  string        `json:"other_emergency_details,omitempty"`
	Description   string        `json:"description"`
	Status        HelpStatus    `json:"status"`
	Confidence    Confidence    `json:"confidence_score"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewHelpRequest builds a pending request from a validated submission.
func NewHelpRequest(sub HelpSubmission, confidence Confidence) HelpRequest {
	t, _ := ParseEmergencyType(sub.EmergencyType)
	return HelpRequest{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(sub.Name),
		Location:      strings.TrimSpace(sub.Location),
		ContactInfo:   strings.TrimSpace(sub.ContactInfo),
		EmergencyType: t,
		OtherDetails:  strings.TrimSpace(sub.OtherDetails),
		Description:   strings.TrimSpace(sub.Description),
		Status:        StatusPending,
		Confidence:    confidence,
		CreatedAt:     clock.Now().UTC(),
	}
}

// TimeFrame restricts requests by age.
type TimeFrame string

const (
	TimeFrameAll    TimeFrame = "all"
	TimeFrameLast24 TimeFrame = "last24"
	TimeFrameLast48 TimeFrame = "last48"
	TimeFrameLast7  TimeFrame = "last7days"
	TimeFrameOlder  TimeFrame = "older"
)

const sevenDays = 7 * 24 * time.Hour

// ParseTimeFrame accepts the known frame names; empty means all.
func ParseTimeFrame(s string) (TimeFrame, bool) {
	switch TimeFrame(strings.ToLower(strings.TrimSpace(s))) {
	case "", TimeFrameAll:
		return TimeFrameAll, true
	case TimeFrameLast24:
		return TimeFrameLast24, true
	case TimeFrameLast48:
		return TimeFrameLast48, true
	case TimeFrameLast7:
		return TimeFrameLast7, true
	case TimeFrameOlder:
		return TimeFrameOlder, true
	default:
		return "", false
	}
}

func (f TimeFrame) admits(age time.Duration) bool {
	switch f {
	case TimeFrameLast24:
		return age <= 24*time.Hour
	case TimeFrameLast48:
		return age <= 48*time.Hour
	case TimeFrameLast7:
		return age <= sevenDays
	case TimeFrameOlder:
		return age > sevenDays
	default:
		return true
	}
}

// HelpFilter selects requests on the responder dashboard. Empty fields match
// everything.
type HelpFilter struct {
	Status        HelpStatus
	EmergencyType EmergencyType
	TimeFrame     TimeFrame
}

// Matches reports whether req passes the filter at instant now.
func (f HelpFilter) Matches(req HelpRequest, now time.Time) bool {
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	if f.EmergencyType != "" && req.EmergencyType != f.EmergencyType {
		return false
	}
	return f.TimeFrame.admits(now.Sub(req.CreatedAt))
}

// FilterHelpRequests returns the matching requests, newest first.
func FilterHelpRequests(reqs []HelpRequest, f HelpFilter) []HelpRequest {
	now := clock.Now()
	out := make([]HelpRequest, 0, len(reqs))
	for _, r := range reqs {
		if f.Matches(r, now) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// HelpStats are the counters above the responder request list.
type HelpStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

// ComputeHelpStats counts requests by status.
func ComputeHelpStats(reqs []HelpRequest) HelpStats {
	s := HelpStats{Total: len(reqs)}
	for _, r := range reqs {
		switch r.Status {
		case StatusPending:
			s.Pending++
		case StatusInProgress:
			s.InProgress++
		case StatusResolved:
			s.Resolved++
		}
	}
	return s
}
