package services

import (
	"fmt"
	"log/slog"
	"strings"

	model "github.com/Itish41/ContraCam/models"
)

const defaultSectionTitle = "General"

// DetectAlerts returns the triggers that occur verbatim in text, in trigger
// order. Matching is case-sensitive. Missing input yields an empty result and
// a warning on logger instead of an error.
func DetectAlerts(text string, triggers []string, logger *slog.Logger) []string {
	found := []string{}
	if text == "" || triggers == nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("alerts.invalid_input", "has_text", text != "", "has_triggers", triggers != nil)
		return found
	}
	for _, t := range triggers {
		if t != "" && strings.Contains(text, t) {
			found = append(found, t)
		}
	}
	return found
}

// BuildSections runs DetectAlerts over the rule phrases and groups the hits
// into DetailedSections, in the order each section is first hit. It returns
// the matched phrases, the sections and the total alert count; all are empty
// when nothing matched.
func BuildSections(text string, rules []model.AlertRule, logger *slog.Logger) ([]string, []model.DetailedSection, int) {
	phrases := make([]string, 0, len(rules))
	byPhrase := make(map[string]model.AlertRule, len(rules))
	for _, r := range rules {
		if _, dup := byPhrase[r.Phrase]; dup {
			continue
		}
		phrases = append(phrases, r.Phrase)
		byPhrase[r.Phrase] = r
	}

	hits := DetectAlerts(text, phrases, logger)
	if len(hits) == 0 {
		return nil, nil, 0
	}

	sentences := splitSentences(text)
	var sections []model.DetailedSection
	index := map[string]int{}
	count := 0

	for _, phrase := range hits {
		rule := byPhrase[phrase]
		title := rule.Section
		if title == "" {
			title = defaultSectionTitle
		}

		i, ok := index[title]
		if !ok {
			sections = append(sections, model.DetailedSection{Title: title})
			i = len(sections) - 1
			index[title] = i
		}

		if snippet := sentenceContaining(sentences, phrase); snippet != "" && !strings.Contains(sections[i].Content, snippet) {
			if sections[i].Content != "" {
				sections[i].Content += " "
			}
			sections[i].Content += snippet
		}

		sections[i].Alerts = append(sections[i].Alerts, model.Alert{
			Level:   alertLevel(rule.Level),
			Message: alertMessage(rule),
		})
		count++
	}
	return hits, sections, count
}

func sentenceContaining(sentences []string, phrase string) string {
	for _, s := range sentences {
		if strings.Contains(s, phrase) {
			return s
		}
	}
	return ""
}

func alertLevel(level string) string {
	if model.ValidLevel(level) {
		return level
	}
	return model.AlertLevelWarning
}

func alertMessage(rule model.AlertRule) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fmt.Sprintf("Contract mentions %q.", rule.Phrase)
}
