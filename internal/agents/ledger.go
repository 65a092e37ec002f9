package agents

// rollingDays is the length of the rolling earnings window.
const rollingDays = 7

// DayEarning is the amount credited to a player on one day.
type DayEarning struct {
	Day    int     `json:"day"`
	Points float64 `json:"points"`
}

// Ledger tracks what a player has earned and scanned recently so the
// scorer can enforce caps and cooldowns.
type Ledger struct {
	// Earned is a ring buffer keyed by day % 7. A slot whose Day is outside
	// the window is stale and counts as zero.
	Earned [rollingDays]DayEarning `json:"earned"`

	PassiveDay   int     `json:"passive_day"`
	PassiveToday float64 `json:"passive_today"`

	ScanDay    int `json:"scan_day"`
	ScansToday int `json:"scans_today"`

	// LastScan maps marker ID to the day this player last scanned it.
	LastScan map[uint64]int `json:"last_scan"`

	VenueWeek int      `json:"venue_week"`
	Venues    []string `json:"venues"`

	// SneezeDays holds the days on which this player received a sneeze
	// bonus as an owner, oldest first.
	SneezeDays []int `json:"sneeze_days"`
}

// NewLedger returns an empty ledger.
func NewLedger() Ledger {
	l := Ledger{
		PassiveDay: NoWindow,
		ScanDay:    NoWindow,
		VenueWeek:  NoWindow,
		LastScan:   make(map[uint64]int),
	}
	for i := range l.Earned {
		l.Earned[i].Day = NoWindow
	}
	return l
}

// WeeklyEarned sums the credits of the seven days ending on day.
func (l *Ledger) WeeklyEarned(day int) float64 {
	var total float64
	for _, e := range l.Earned {
		if e.Day > day-rollingDays && e.Day <= day {
			total += e.Points
		}
	}
	return total
}

// WeeklyRemaining returns how much more the player may earn on day
// without exceeding weeklyCap over the rolling window.
func (l *Ledger) WeeklyRemaining(day int, weeklyCap float64) float64 {
	return max(0, weeklyCap-l.WeeklyEarned(day))
}

// PassiveRemaining returns how much more passive (owner) income the player
// may receive on day.
func (l *Ledger) PassiveRemaining(day int, passiveCap float64) float64 {
	if l.PassiveDay != day {
		return passiveCap
	}
	return max(0, passiveCap-l.PassiveToday)
}

// Record books points credited on day. Passive credits also count toward
// the daily passive cap.
func (l *Ledger) Record(day int, points float64, passive bool) {
	slot := &l.Earned[day%rollingDays]
	if slot.Day != day {
		*slot = DayEarning{Day: day}
	}
	slot.Points += points
	if passive {
		if l.PassiveDay != day {
			l.PassiveDay = day
			l.PassiveToday = 0
		}
		l.PassiveToday += points
	}
}

// ScansOn returns how many scans the player has taken on day.
func (l *Ledger) ScansOn(day int) int {
	if l.ScanDay != day {
		return 0
	}
	return l.ScansToday
}

// CanScan reports whether the per-marker cooldown has elapsed. Scans are
// taken once per day granularity, so the gap is measured in whole days.
func (l *Ledger) CanScan(marker uint64, day, cooldownHours int) bool {
	last, ok := l.LastScan[marker]
	if !ok {
		return true
	}
	return (day-last)*24 >= cooldownHours
}

// MarkScanned records a scan of marker on day.
func (l *Ledger) MarkScanned(marker uint64, day int) {
	if l.LastScan == nil {
		l.LastScan = make(map[uint64]int)
	}
	l.LastScan[marker] = day
	if l.ScanDay != day {
		l.ScanDay = day
		l.ScansToday = 0
	}
	l.ScansToday++
}

// FirstVenueThisWeek reports whether venue has not yet been scanned in the
// week containing day, and records it.
func (l *Ledger) FirstVenueThisWeek(venue string, day int) bool {
	week := day / rollingDays
	if l.VenueWeek != week {
		l.VenueWeek = week
		l.Venues = l.Venues[:0]
	}
	for _, v := range l.Venues {
		if v == venue {
			return false
		}
	}
	l.Venues = append(l.Venues, venue)
	return true
}

// SneezeAwards counts sneeze bonuses received in the rolling window ending
// on day, pruning older entries.
func (l *Ledger) SneezeAwards(day int) int {
	keep := l.SneezeDays[:0]
	for _, d := range l.SneezeDays {
		if d > day-rollingDays {
			keep = append(keep, d)
		}
	}
	l.SneezeDays = keep
	return len(keep)
}

// RecordSneeze books a sneeze bonus received on day.
func (l *Ledger) RecordSneeze(day int) {
	l.SneezeDays = append(l.SneezeDays, day)
}
