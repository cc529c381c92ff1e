package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/triagekit/triage/internal/notify"
	"github.com/triagekit/triage/internal/types"
)

// displayNewItems prints one broadcast event to the terminal
func displayNewItems(event notify.Event) {
	timestamp := event.Timestamp.Local().Format("15:04:05")
	header := color.New(color.FgYellow, color.Bold)
	total := len(event.Issues) + len(event.Discussions)
	header.Printf("[%s] %d new item(s)\n", timestamp, total)

	for _, item := range event.Issues {
		displayItem(item)
	}
	for _, item := range event.Discussions {
		displayItem(item)
	}
}

// displayItem prints a single item with consistent two-line format
func displayItem(item types.Item) {
	numberColor := color.New(color.FgGreen)
	kindColor := color.New(color.FgMagenta)

	fmt.Printf("%s %s %s %s\n",
		itemEmoji(item.Kind),
		kindColor.Sprint(item.Kind),
		numberColor.Sprintf("#%d", item.Number),
		truncateString(item.Title, 60),
	)

	gray := color.New(color.FgHiBlack)
	meta := fmt.Sprintf("by %s", item.Author)
	if len(item.Labels) > 0 {
		meta += " | " + truncateString(joinLabels(item.Labels), 40)
	}
	meta += " | " + item.URL
	gray.Printf("  %s\n", meta)
}

func itemEmoji(kind types.Kind) string {
	switch kind {
	case types.KindDiscussion:
		return "💬"
	default:
		return "🐛"
	}
}

func joinLabels(labels []string) string {
	result := ""
	for i, l := range labels {
		if i > 0 {
			result += ", "
		}
		result += l
	}
	return result
}

// truncateString truncates a string to maxLen, adding "..." if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
