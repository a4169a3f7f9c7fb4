package stats

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mmeshcher/campstats/internal/model"
)

// DefaultCurfewHour задаёт час ежедневного закрытия баров.
const DefaultCurfewHour = 2

// MilestoneLabel описывает тип ближайшей точки расписания.
type MilestoneLabel string

const (
	LabelBuildup MilestoneLabel = "BUILDUP"
	LabelStart   MilestoneLabel = "START"
	LabelCurfew  MilestoneLabel = "CURFEW"
)

// Milestone описывает ближайшую точку расписания для обратного отсчёта.
type Milestone struct {
	Label  MilestoneLabel `json:"label"`
	Target time.Time      `json:"target"`
}

// Remaining возвращает время до точки расписания, не меньше нуля.
func (m Milestone) Remaining(now time.Time) time.Duration {
	d := m.Target.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// NextMilestone определяет ближайшую точку расписания: начало монтажа, старт кэмпа или комендантский час.
func NextMilestone(camp *model.Camp, now time.Time, dailyResetHour int) Milestone {
	if camp != nil {
		if camp.Buildup.After(now) {
			return Milestone{Label: LabelBuildup, Target: camp.Buildup}
		}
		if camp.Start.After(now) {
			return Milestone{Label: LabelStart, Target: camp.Start}
		}
	}
	return Milestone{Label: LabelCurfew, Target: NextDailyReset(now, dailyResetHour)}
}

// NextDailyReset возвращает ближайший момент hour:00 строго после now в часовом поясе now.
func NextDailyReset(now time.Time, hour int) time.Time {
	hour = ((hour % hoursPerDay) + hoursPerDay) % hoursPerDay
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !t.After(now) {
		t = time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, now.Location())
	}
	return t
}

// Urgency определяет степень срочности обратного отсчёта для отображения.
type Urgency string

const (
	UrgencyNone  Urgency = "none"
	UrgencyBlink Urgency = "blink"
	UrgencyFlash Urgency = "flash"
	UrgencyShake Urgency = "shake"
)

// UrgencyFor возвращает степень срочности по оставшемуся времени.
func UrgencyFor(remaining time.Duration) Urgency {
	switch {
	case remaining < 5*time.Minute:
		return UrgencyShake
	case remaining < 15*time.Minute:
		return UrgencyFlash
	case remaining < time.Hour:
		return UrgencyBlink
	default:
		return UrgencyNone
	}
}

// FormatCountdown форматирует оставшееся время: "N DAYS TILL" от суток и больше, иначе ЧЧ:ММ:СС.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	if remaining >= day {
		return fmt.Sprintf("%d DAYS TILL", int(math.Round(remaining.Hours()/hoursPerDay)))
	}
	total := int(remaining / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// Caption возвращает подпись под обратным отсчётом.
func Caption(m Milestone, camp *model.Camp) string {
	if m.Label == LabelCurfew || camp == nil {
		return "TILL CURFEW"
	}
	return strings.ToUpper(camp.Name) + " " + string(m.Label)
}
