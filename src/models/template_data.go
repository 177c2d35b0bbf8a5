package models

import (
	"fmt"
	"time"
)

// TemplateData represents data available to the title format template
type TemplateData struct {
	Remaining string `json:"remaining"` // e.g. "1h05m", "12m", "0m"
	Used      string `json:"used"`
	Limit     string `json:"limit"`
	Tier      string `json:"tier"`
	Emoji     string `json:"emoji"`
	Minutes   int    `json:"minutes"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// NewTemplateData creates TemplateData from a DisplayState
func NewTemplateData(state DisplayState, now time.Time) *TemplateData {
	return &TemplateData{
		Remaining: FormatMinutes(state.RemainingMinutes),
		Used:      FormatMinutes(state.UsedSeconds / secondsPerMinute),
		Limit:     FormatMinutes(state.LimitSeconds / secondsPerMinute),
		Tier:      state.Tier.String(),
		Emoji:     state.Tier.Emoji(),
		Minutes:   state.RemainingMinutes,
		Date:      now.Format("2006-01-02"),
		Time:      now.Format("15:04"),
	}
}

// FormatMinutes renders a minute count compactly: "45m", "1h00m", "2h30m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
