package plans

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	planWeeks = 4

	defaultProfileType  = "Explorer"
	defaultSkillTrack   = "Foundations"
	defaultBatteryLevel = 50
	defaultMissionMins  = 10
)

// Plan is the personalised programme rendered after the quiz. Every field is
// always populated so the client can render it without null checks.
type Plan struct {
	ProfileType  string   `json:"profileType"`
	BatteryLevel int      `json:"batteryLevel"`
	Blockers     []string `json:"blockers"`
	SkillTrack   string   `json:"skillTrack"`
	Weeks        []Week   `json:"weeks"`
	DailyMission Mission  `json:"dailyMission"`
}

type Week struct {
	Week    int    `json:"week"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type Mission struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes"`
}

type rawPlan struct {
	ProfileType  any `json:"profileType"`
	BatteryLevel any `json:"batteryLevel"`
	Blockers     any `json:"blockers"`
	SkillTrack   any `json:"skillTrack"`
	Weeks        any `json:"weeks"`
	DailyMission any `json:"dailyMission"`
}

// ParsePlan extracts the first JSON object from model output and fills every
// missing or malformed field with a default. ok is false only when no JSON
// object could be found.
func ParsePlan(output string) (plan Plan, ok bool) {
	var raw rawPlan
	doc, found := extractObject(output)
	if found {
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			found = false
		}
	}

	plan = Plan{
		ProfileType:  textOr(raw.ProfileType, defaultProfileType),
		BatteryLevel: clamp(intOr(raw.BatteryLevel, defaultBatteryLevel), 0, 100),
		Blockers:     stringList(raw.Blockers),
		SkillTrack:   textOr(raw.SkillTrack, defaultSkillTrack),
		Weeks:        normalizeWeeks(raw.Weeks),
		DailyMission: normalizeMission(raw.DailyMission),
	}
	return plan, found
}

// normalizeWeeks accepts week objects or bare titles; anything else keeps the
// default for that slot.
func normalizeWeeks(v any) []Week {
	in, _ := v.([]any)
	weeks := make([]Week, planWeeks)
	for i := range weeks {
		weeks[i] = Week{
			Week:    i + 1,
			Title:   "Week " + strconv.Itoa(i+1),
			Summary: "",
		}
		if i >= len(in) {
			continue
		}
		switch item := in[i].(type) {
		case map[string]any:
			weeks[i].Title = textOr(item["title"], weeks[i].Title)
			weeks[i].Summary = textOr(item["summary"], "")
		case string:
			weeks[i].Title = textOr(item, weeks[i].Title)
		}
	}
	return weeks
}

// normalizeMission takes a mission object, or a bare string as its title.
func normalizeMission(v any) Mission {
	m := Mission{
		Title:           "Daily focus",
		Description:     "Spend a few minutes on today's step.",
		DurationMinutes: defaultMissionMins,
	}
	switch mission := v.(type) {
	case map[string]any:
		m.Title = textOr(mission["title"], m.Title)
		m.Description = textOr(mission["description"], m.Description)
		m.DurationMinutes = clamp(intOr(mission["durationMinutes"], m.DurationMinutes), 1, 240)
	case string:
		m.Title = textOr(mission, m.Title)
	}
	return m
}

// extractObject strips markdown fences and returns the first balanced JSON
// object in s.
func extractObject(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func textOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return fallback
}

func intOr(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fallback
		}
		return int(math.Round(n))
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64); err == nil {
			return int(math.Round(parsed))
		}
	}
	return fallback
}

func stringList(v any) []string {
	out := []string{}
	switch items := v.(type) {
	case []any:
		for _, item := range items {
			if s := textOr(item, ""); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(items); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
