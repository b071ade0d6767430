// Package schedule computes timeline layout and overlap conflicts for a set
// of promotions within a viewing window. Layout is a pure function over the
// in-memory promotion list; callers rerun it whenever the list or the window
// changes.
package schedule

import (
	"sort"
	"time"

	"github.com/couponops/promo-admin/internal/model"
)

// MaxConflictNames caps how many conflicting promotion names a row lists for
// display. ConflictCount stays exact regardless.
const MaxConflictNames = 6

// Row is one promotion's visible timeline bar plus its conflict summary.
// Left and Width are percentages of the window.
type Row struct {
	PromotionID      string   `json:"promotion_id"`
	Name             string   `json:"name"`
	Active           bool     `json:"active"`
	Left             float64  `json:"left"`
	Width            float64  `json:"width"`
	ConflictCount    int      `json:"conflict_count"`
	ConflictNames    []string `json:"conflict_names,omitempty"`
	ConflictOverflow int      `json:"conflict_overflow,omitempty"`
}

type visible struct {
	promo      *model.Promotion
	start, end time.Time
}

// Layout clips every promotion's schedule to the window, detects pairwise
// overlaps among active promotions, and returns renderable rows sorted by
// visible start. Promotions without a start (or end) are treated as
// open-ended on that side. Inactive promotions are displayed but never
// participate in conflict detection.
func Layout(promos []model.Promotion, windowStart time.Time, windowDays int) []Row {
	if windowDays <= 0 {
		return []Row{}
	}
	windowEnd := windowStart.Add(time.Duration(windowDays) * 24 * time.Hour)

	vis := make([]visible, 0, len(promos))
	for i := range promos {
		p := &promos[i]
		start := windowStart
		if p.StartsAt != nil && p.StartsAt.After(windowStart) {
			start = *p.StartsAt
		}
		end := windowEnd
		if p.EndsAt != nil && p.EndsAt.Before(windowEnd) {
			end = *p.EndsAt
		}
		if !end.After(start) {
			continue
		}
		vis = append(vis, visible{promo: p, start: start, end: end})
	}

	sort.SliceStable(vis, func(i, j int) bool {
		return vis[i].start.Before(vis[j].start)
	})

	conflicts := make([][]string, len(vis))
	for i := 0; i < len(vis); i++ {
		if !vis[i].promo.Active {
			continue
		}
		for j := i + 1; j < len(vis); j++ {
			if !vis[j].promo.Active {
				continue
			}
			if vis[i].start.Before(vis[j].end) && vis[j].start.Before(vis[i].end) {
				conflicts[i] = append(conflicts[i], vis[j].promo.Name)
				conflicts[j] = append(conflicts[j], vis[i].promo.Name)
			}
		}
	}

	windowDur := windowEnd.Sub(windowStart)
	rows := make([]Row, 0, len(vis))
	for i, v := range vis {
		left := float64(v.start.Sub(windowStart)) / float64(windowDur) * 100
		width := float64(v.end.Sub(v.start)) / float64(windowDur) * 100
		if width < 1 {
			width = 1
		}
		if left+width > 100 {
			width = 100 - left
		}

		names := conflicts[i]
		overflow := 0
		if len(names) > MaxConflictNames {
			overflow = len(names) - MaxConflictNames
			names = names[:MaxConflictNames]
		}
		rows = append(rows, Row{
			PromotionID:      v.promo.ID,
			Name:             v.promo.Name,
			Active:           v.promo.Active,
			Left:             left,
			Width:            width,
			ConflictCount:    len(conflicts[i]),
			ConflictNames:    names,
			ConflictOverflow: overflow,
		})
	}
	return rows
}
