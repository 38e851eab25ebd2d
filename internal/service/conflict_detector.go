package service

import "sort"

// Conflict 同一天内时间重叠的两个 Session
// SessionIDA < SessionIDB（字典序），重叠区间为半开区间
type Conflict struct {
	SessionIDA         string
	SessionIDB         string
	Weekday            int
	OverlapStartMinute int
	OverlapEndMinute   int
}

// DetectConflicts 两两比较所选 Session，报告所有重叠
// 先按 ID 去重（保留第一次出现），同一无序对只报告一次
func DetectConflicts(selected []Session) []Conflict {
	unique := dedupeSessions(selected)
	conflicts := make([]Conflict, 0)

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a, b := unique[i], unique[j]
			if a.Weekday != b.Weekday {
				continue
			}
			if !(a.StartMinute < b.EndMinute && b.StartMinute < a.EndMinute) {
				continue
			}
			if b.ID < a.ID {
				a, b = b, a
			}
			conflicts = append(conflicts, Conflict{
				SessionIDA:         a.ID,
				SessionIDB:         b.ID,
				Weekday:            a.Weekday,
				OverlapStartMinute: max(a.StartMinute, b.StartMinute),
				OverlapEndMinute:   min(a.EndMinute, b.EndMinute),
			})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		x, y := conflicts[i], conflicts[j]
		if x.Weekday != y.Weekday {
			return x.Weekday < y.Weekday
		}
		if x.OverlapStartMinute != y.OverlapStartMinute {
			return x.OverlapStartMinute < y.OverlapStartMinute
		}
		if x.SessionIDA != y.SessionIDA {
			return x.SessionIDA < y.SessionIDA
		}
		return x.SessionIDB < y.SessionIDB
	})
	return conflicts
}

func dedupeSessions(sessions []Session) []Session {
	seen := make(map[string]bool, len(sessions))
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}
