// Package tone merges a user's AI-extracted style profile with their manual
// overrides into the single directive consumed by narrative generation.
package tone

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inkwellhq/inkwell/internal/models"
)

// Directive is the merged style object passed into prompt construction.
type Directive struct {
	Voice           string
	Audience        string
	Notes           string
	SamplePhrases   []string
	UseEmojis       bool
	UseHashtags     bool
	PreferredLength string
}

// extractedProfile is the shape the tone-extraction path writes into
// tone_profiles.extracted.
type extractedProfile struct {
	Voice         string   `json:"voice"`
	Audience      string   `json:"audience"`
	SamplePhrases []string `json:"sample_phrases"`
}

// Merge builds a directive from profile. Manual overrides win over extracted
// values field by field; a nil profile yields the neutral default directive.
func Merge(profile *models.ToneProfile) Directive {
	directive := Directive{
		Voice:           "warm and reflective",
		Audience:        "a general audience",
		UseHashtags:     true,
		PreferredLength: models.LengthMedium,
	}

	if profile == nil {
		return directive
	}

	if len(profile.Extracted) > 0 {
		var extracted extractedProfile
		// Malformed extracted profiles degrade to defaults; overrides below
		// still apply.
		if err := json.Unmarshal(profile.Extracted, &extracted); err == nil {
			if extracted.Voice != "" {
				directive.Voice = extracted.Voice
			}
			if extracted.Audience != "" {
				directive.Audience = extracted.Audience
			}
			directive.SamplePhrases = extracted.SamplePhrases
		}
	}

	if profile.OverrideVoice != "" {
		directive.Voice = profile.OverrideVoice
	}
	if profile.OverrideAudience != "" {
		directive.Audience = profile.OverrideAudience
	}
	directive.Notes = profile.OverrideNotes

	directive.UseEmojis = profile.UseEmojis
	directive.UseHashtags = profile.UseHashtags
	if profile.PreferredLength != "" {
		directive.PreferredLength = profile.PreferredLength
	}

	return directive
}

// PromptLines renders the directive as instruction lines for the provider.
func (d Directive) PromptLines() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write in a %s voice for %s.\n", d.Voice, d.Audience)
	fmt.Fprintf(&b, "Target length: %s.\n", lengthHint(d.PreferredLength))
	if len(d.SamplePhrases) > 0 {
		fmt.Fprintf(&b, "Phrases characteristic of the author: %s.\n", strings.Join(d.SamplePhrases, "; "))
	}
	if d.Notes != "" {
		fmt.Fprintf(&b, "Additional guidance from the author: %s\n", d.Notes)
	}
	if d.UseEmojis {
		b.WriteString("Emojis are welcome where they fit naturally.\n")
	} else {
		b.WriteString("Do not use emojis.\n")
	}
	if !d.UseHashtags {
		b.WriteString("Do not include hashtags.\n")
	}
	return b.String()
}

func lengthHint(preferred string) string {
	switch preferred {
	case models.LengthShort:
		return "one tight paragraph"
	case models.LengthLong:
		return "four to six paragraphs"
	default:
		return "two to three paragraphs"
	}
}
