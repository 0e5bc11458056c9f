package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"todolist/internal/clock"
	"todolist/internal/model"
)

const dueSoonWindow = 48 * time.Hour

// ItemLister is the part of TodoService the report needs.
type ItemLister interface {
	ListItems(ctx context.Context, includeAll bool) ([]model.TodoItem, error)
}

// ReportService builds human-readable digests of the todo list.
type ReportService struct {
	items ItemLister
	clock clock.Clock
}

func NewReportService(items ItemLister, clk clock.Clock) *ReportService {
	return &ReportService{items: items, clock: clk}
}

// Summary renders an HTML digest of open, past due and done items.
func (s *ReportService) Summary(ctx context.Context) (string, error) {
	items, err := s.items.ListItems(ctx, true)
	if err != nil {
		return "", err
	}
	now := s.clock.Now().UTC()

	var open, pastDue []model.TodoItem
	done := 0
	for _, item := range items {
		switch item.Status {
		case model.StatusNotDone:
			open = append(open, item)
		case model.StatusPastDue:
			pastDue = append(pastDue, item)
		case model.StatusDone:
			done++
		}
	}

	byDue := func(list []model.TodoItem) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].DueDatetime.Before(list[j].DueDatetime)
		})
	}
	byDue(open)
	byDue(pastDue)

	var builder strings.Builder
	builder.WriteString("📋 <b>Todo digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString("🔥 <b>Open</b>\n")
	if len(open) == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, item := range open {
			builder.WriteString(formatOpen(item, now))
		}
	}

	builder.WriteString("\n⚠️ <b>Past due</b>\n")
	if len(pastDue) == 0 {
		builder.WriteString("— nothing past due\n")
	} else {
		for _, item := range pastDue {
			builder.WriteString(formatPastDue(item))
		}
	}

	builder.WriteString(fmt.Sprintf("\n✅ Done: %d\n", done))

	return strings.TrimSpace(builder.String()), nil
}

func formatOpen(item model.TodoItem, now time.Time) string {
	icon := "🟢"
	if item.DueDatetime.Sub(now) <= dueSoonWindow {
		icon = "⏳"
	}
	return fmt.Sprintf("%s #%d %s\n   ⏰ due %s\n",
		icon, item.ID, escape(item.Description), item.DueDatetime.Format("2006-01-02 15:04"))
}

func formatPastDue(item model.TodoItem) string {
	return fmt.Sprintf("⚠️ #%d %s\n   ⏰ was due %s\n",
		item.ID, escape(item.Description), item.DueDatetime.Format("2006-01-02 15:04"))
}

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
