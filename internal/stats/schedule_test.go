package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/campstats/internal/model"
)

func TestNextMilestone(t *testing.T) {
	start := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	camp := &model.Camp{
		Name:    "Summer",
		Buildup: start.Add(-72 * time.Hour),
		Start:   start,
		End:     start.Add(7 * 24 * time.Hour),
	}

	tests := []struct {
		name string
		camp *model.Camp
		now  time.Time
		want Milestone
	}{
		{
			name: "before buildup",
			camp: camp,
			now:  camp.Buildup.Add(-time.Hour),
			want: Milestone{Label: LabelBuildup, Target: camp.Buildup},
		},
		{
			name: "just before start",
			camp: camp,
			now:  start.Add(-time.Second),
			want: Milestone{Label: LabelStart, Target: start},
		},
		{
			name: "just after start",
			camp: camp,
			now:  start.Add(time.Second),
			want: Milestone{Label: LabelCurfew, Target: time.Date(2026, 7, 2, 2, 0, 0, 0, time.UTC)},
		},
		{
			name: "exactly at start flips to curfew",
			camp: camp,
			now:  start,
			want: Milestone{Label: LabelCurfew, Target: time.Date(2026, 7, 2, 2, 0, 0, 0, time.UTC)},
		},
		{
			name: "no camp",
			camp: nil,
			now:  time.Date(2026, 7, 1, 1, 30, 0, 0, time.UTC),
			want: Milestone{Label: LabelCurfew, Target: time.Date(2026, 7, 1, 2, 0, 0, 0, time.UTC)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMilestone(tt.camp, tt.now, DefaultCurfewHour))
		})
	}
}

func TestNextDailyReset(t *testing.T) {
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, day.Add(2*time.Hour), NextDailyReset(day.Add(time.Hour), 2))
	assert.Equal(t, day.Add(26*time.Hour), NextDailyReset(day.Add(2*time.Hour), 2))
	assert.Equal(t, day.Add(26*time.Hour), NextDailyReset(day.Add(3*time.Hour), 2))
	assert.Equal(t, day.Add(26*time.Hour), NextDailyReset(day.Add(3*time.Hour), 26))

	loc := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2026, 7, 1, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 7, 2, 2, 0, 0, 0, loc), NextDailyReset(local, 2))
}

func TestMilestone_Remaining(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	m := Milestone{Target: now.Add(90 * time.Minute)}

	assert.Equal(t, 90*time.Minute, m.Remaining(now))
	assert.Zero(t, m.Remaining(now.Add(2*time.Hour)))
}

func TestUrgencyFor(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      Urgency
	}{
		{remaining: 0, want: UrgencyShake},
		{remaining: 4*time.Minute + 59*time.Second, want: UrgencyShake},
		{remaining: 5 * time.Minute, want: UrgencyFlash},
		{remaining: 14 * time.Minute, want: UrgencyFlash},
		{remaining: 15 * time.Minute, want: UrgencyBlink},
		{remaining: 59 * time.Minute, want: UrgencyBlink},
		{remaining: time.Hour, want: UrgencyNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UrgencyFor(tt.remaining), tt.remaining.String())
	}
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "01:30:05", FormatCountdown(90*time.Minute+5*time.Second))
	assert.Equal(t, "00:00:00", FormatCountdown(-time.Second))
	assert.Equal(t, "23:59:59", FormatCountdown(24*time.Hour-time.Second))
	assert.Equal(t, "3 DAYS TILL", FormatCountdown(72*time.Hour))
	assert.Equal(t, "2 DAYS TILL", FormatCountdown(36*time.Hour))
}

func TestCaption(t *testing.T) {
	camp := &model.Camp{Name: "Summer"}

	assert.Equal(t, "SUMMER BUILDUP", Caption(Milestone{Label: LabelBuildup}, camp))
	assert.Equal(t, "SUMMER START", Caption(Milestone{Label: LabelStart}, camp))
	assert.Equal(t, "TILL CURFEW", Caption(Milestone{Label: LabelCurfew}, camp))
	assert.Equal(t, "TILL CURFEW", Caption(Milestone{Label: LabelStart}, nil))
}
