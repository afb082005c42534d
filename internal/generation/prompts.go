package generation

import (
	"fmt"
	"strings"

	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/platforms"
	"github.com/inkwellhq/inkwell/internal/tone"
)

// Metadata label sets per granularity. The parser splits provider output on
// these, in order of appearance.
var (
	dailyLabels   = []string{"Themes", "Highlights", "Mood"}
	weeklyLabels  = []string{"Themes", "Patterns", "Wins"}
	monthlyLabels = []string{"Themes", "Milestones", "Reflection"}
)

const narrativeSystemPreamble = "You turn a person's raw notes into a first-person narrative in their own voice. " +
	"Write naturally; never mention that the text was generated."

func buildDailySystem(directive tone.Directive) string {
	var b strings.Builder
	b.WriteString(narrativeSystemPreamble)
	b.WriteString("\n\n")
	b.WriteString(directive.PromptLines())
	b.WriteString("\nAfter the narrative, append these labeled lines exactly once each:\n")
	b.WriteString("Themes: <comma-separated themes>\n")
	b.WriteString("Highlights: <comma-separated highlights>\n")
	b.WriteString("Mood: <one or two words>\n")
	return b.String()
}

func buildDailyUser(checkIns []models.CheckIn) string {
	var b strings.Builder
	b.WriteString("Today's check-ins, oldest first:\n\n")
	for _, checkIn := range checkIns {
		fmt.Fprintf(&b, "- [%s] %s\n", checkIn.CreatedAt.Format("15:04"), checkIn.Content)
	}
	b.WriteString("\nWrite today's narrative from these notes.")
	return b.String()
}

func buildWeeklySystem(directive tone.Directive) string {
	var b strings.Builder
	b.WriteString(narrativeSystemPreamble)
	b.WriteString("\n\n")
	b.WriteString(directive.PromptLines())
	b.WriteString("\nSynthesize the week from the daily entries; look for arcs, not a day-by-day recap.\n")
	b.WriteString("After the narrative, append these labeled lines exactly once each:\n")
	b.WriteString("Themes: <comma-separated themes>\n")
	b.WriteString("Patterns: <recurring patterns you noticed>\n")
	b.WriteString("Wins: <comma-separated wins>\n")
	return b.String()
}

func buildWeeklyUser(posts []models.GeneratedPost) string {
	var b strings.Builder
	b.WriteString("This week's daily narratives, oldest first:\n\n")
	for _, post := range posts {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", post.PeriodStart.Format("Monday, Jan 2"), post.Content)
	}
	b.WriteString("Write the week's narrative.")
	return b.String()
}

func buildMonthlySystem(directive tone.Directive) string {
	var b strings.Builder
	b.WriteString(narrativeSystemPreamble)
	b.WriteString("\n\n")
	b.WriteString(directive.PromptLines())
	b.WriteString("\nStep back and tell the story of the month from the weekly entries.\n")
	b.WriteString("After the narrative, append these labeled lines exactly once each:\n")
	b.WriteString("Themes: <comma-separated themes>\n")
	b.WriteString("Milestones: <comma-separated milestones>\n")
	b.WriteString("Reflection: <one sentence looking forward>\n")
	return b.String()
}

func buildMonthlyUser(posts []models.GeneratedPost) string {
	var b strings.Builder
	b.WriteString("This month's weekly narratives, oldest first:\n\n")
	for _, post := range posts {
		fmt.Fprintf(&b, "--- week of %s ---\n%s\n\n", post.PeriodStart.Format("Jan 2"), post.Content)
	}
	b.WriteString("Write the month's narrative.")
	return b.String()
}

func buildAdaptSystem(def *platforms.Definition, directive tone.Directive) string {
	var b strings.Builder
	b.WriteString("You adapt a finished narrative for one publishing platform while preserving the author's voice ")
	b.WriteString("and the original paragraph structure. Shorten if needed; never merge paragraphs.\n\n")
	fmt.Fprintf(&b, "Platform: %s. Style: %s.\n", def.DisplayName, def.StyleHint)
	if def.MaxLength > 0 {
		fmt.Fprintf(&b, "Hard limit: %d characters.\n", def.MaxLength)
	}
	if directive.UseHashtags && def.MaxHashtags > 0 {
		fmt.Fprintf(&b, "You may add up to %d relevant hashtags at the end.\n", def.MaxHashtags)
	} else {
		b.WriteString("Do not include hashtags.\n")
	}
	if directive.UseEmojis && def.AllowEmojis {
		b.WriteString("Emojis are allowed where natural.\n")
	} else {
		b.WriteString("Do not use emojis.\n")
	}
	return b.String()
}

func buildAdaptUser(content string) string {
	return "Adapt this narrative for the platform:\n\n" + content
}
