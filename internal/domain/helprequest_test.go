package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() HelpSubmission {
	return HelpSubmission{
		Name:          " Dana ",
		Location:      "Austin, TX, USA",
		ContactInfo:   "555-0100",
		EmergencyType: "Flood",
		Description:   "water in the basement",
	}
}

func TestHelpSubmission_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*HelpSubmission)
		wantField string
	}{
		{"valid", func(*HelpSubmission) {}, ""},
		{"missing name", func(s *HelpSubmission) { s.Name = "  " }, "name"},
		{"missing contact", func(s *HelpSubmission) { s.ContactInfo = "" }, "contact_info"},
		{"missing description", func(s *HelpSubmission) { s.Description = "" }, "description"},
		{"unknown type", func(s *HelpSubmission) { s.EmergencyType = "meteor" }, "emergency_type"},
		{"other without details", func(s *HelpSubmission) { s.EmergencyType = "other" }, "other_emergency_details"},
		{"other with details", func(s *HelpSubmission) {
			s.EmergencyType = "other"
			s.OtherDetails = "gas leak"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			err := sub.Validate()

			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}

func TestNewHelpRequest(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	req := NewHelpRequest(validSubmission(), ConfidenceMedium)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "Dana", req.Name)
	assert.Equal(t, EmergencyFlood, req.EmergencyType)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, ConfidenceMedium, req.Confidence)
	assert.Equal(t, now, req.CreatedAt)

	other := NewHelpRequest(validSubmission(), ConfidenceLow)
	assert.NotEqual(t, req.ID, other.ID)
}

func TestFilterHelpRequests(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	aged := func(id string, age time.Duration, status HelpStatus, typ EmergencyType) HelpRequest {
		return HelpRequest{ID: id, Status: status, EmergencyType: typ, CreatedAt: now.Add(-age)}
	}
	reqs := []HelpRequest{
		aged("h30", 30*time.Hour, StatusPending, EmergencyFire),
		aged("h1", time.Hour, StatusPending, EmergencyFlood),
		aged("h200", 200*time.Hour, StatusResolved, EmergencyFlood),
		aged("h100", 100*time.Hour, StatusInProgress, EmergencyMedical),
	}

	ids := func(rs []HelpRequest) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter HelpFilter
		want   []string
	}{
		{"everything newest first", HelpFilter{}, []string{"h1", "h30", "h100", "h200"}},
		{"last 24 hours", HelpFilter{TimeFrame: TimeFrameLast24}, []string{"h1"}},
		{"last 48 hours", HelpFilter{TimeFrame: TimeFrameLast48}, []string{"h1", "h30"}},
		{"last 7 days", HelpFilter{TimeFrame: TimeFrameLast7}, []string{"h1", "h30", "h100"}},
		{"older", HelpFilter{TimeFrame: TimeFrameOlder}, []string{"h200"}},
		{"status", HelpFilter{Status: StatusPending}, []string{"h1", "h30"}},
		{"type and frame", HelpFilter{EmergencyType: EmergencyFlood, TimeFrame: TimeFrameLast7}, []string{"h1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterHelpRequests(reqs, tt.filter)))
		})
	}
}

func TestParseHelpEnums(t *testing.T) {
	s, ok := ParseHelpStatus("In-Progress")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, s)
	_, ok = ParseHelpStatus("closed")
	assert.False(t, ok)

	f, ok := ParseTimeFrame("")
	assert.True(t, ok)
	assert.Equal(t, TimeFrameAll, f)
	_, ok = ParseTimeFrame("yesterday")
	assert.False(t, ok)

	e, ok := ParseEmergencyType(" MEDICAL ")
	assert.True(t, ok)
	assert.Equal(t, EmergencyMedical, e)
}

func TestComputeHelpStats(t *testing.T) {
	stats := ComputeHelpStats([]HelpRequest{
		{Status: StatusPending},
		{Status: StatusPending},
		{Status: StatusInProgress},
		{Status: StatusResolved},
	})
	assert.Equal(t, HelpStats{Total: 4, Pending: 2, InProgress: 1, Resolved: 1}, stats)
}
