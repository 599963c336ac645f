package ai

import (
	"fmt"
	"strings"
)

const basePrompt = `You write listing descriptions for a second-hand bicycle marketplace.

Hard rules (must follow):

* Only use the facts provided. Do NOT invent components, sizes, upgrades, service history or accessories.
* Never state a price, shipping promise or warranty.
* Keep it to 2-3 short paragraphs of plain text. No markdown, headings, bullet points or emoji.
* Write in a friendly, honest tone, like an experienced rider selling their own bike.`

var conditionNotes = map[string]string{
	"new": `Condition guidance (new):
* Describe it as unused. Mention it has never been ridden only if the notes say so.`,
	"like_new": `Condition guidance (like_new):
* Emphasise light use and clean condition, but do not claim it is flawless.`,
	"good": `Condition guidance (good):
* Mention normal signs of use honestly and keep the focus on how it rides.`,
	"fair": `Condition guidance (fair):
* Be upfront about wear described in the notes and suggest it suits a rider happy to do some maintenance.`,
}

// BuildDescriptionPrompt joins the base rules with guidance for the listing condition.
// Unknown conditions fall back to good.
func BuildDescriptionPrompt(condition string) string {
	condition = strings.TrimSpace(strings.ToLower(condition))
	note, ok := conditionNotes[condition]
	if !ok {
		note = conditionNotes["good"]
	}
	return strings.Join([]string{basePrompt, note}, "\n\n")
}

type ListingFacts struct {
	Title     string
	Brand     string
	Model     string
	Category  string
	Condition string
	Notes     string
}

func (f ListingFacts) String() string {
	var b strings.Builder
	line := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	line("Title", f.Title)
	line("Brand", f.Brand)
	line("Model", f.Model)
	line("Category", f.Category)
	line("Condition", f.Condition)
	line("Seller notes", f.Notes)
	return b.String()
}
