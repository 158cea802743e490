package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	model "github.com/Itish41/ContraCam/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// RuleSource supplies the alert triggers checked during intake.
type RuleSource interface {
	ListRules(ctx context.Context) ([]model.AlertRule, error)
}

// StaticRules is a fixed, in-memory RuleSource.
type StaticRules []model.AlertRule

func (r StaticRules) ListRules(context.Context) ([]model.AlertRule, error) {
	return r, nil
}

// RuleService manages alert rules stored in the alert_rules table.
type RuleService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRuleService(db *gorm.DB, logger *slog.Logger) *RuleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleService{db: db, logger: logger}
}

// ListRules returns every rule, oldest first.
func (s *RuleService) ListRules(ctx context.Context) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&rules).Error; err != nil {
		s.logger.Error("rules.list_failed", "error", err)
		return nil, fmt.Errorf("failed to fetch alert rules: %w", err)
	}
	return rules, nil
}

// AddRule validates and stores a new rule.
func (s *RuleService) AddRule(ctx context.Context, rule *model.AlertRule) error {
	rule.Phrase = strings.TrimSpace(rule.Phrase)
	if rule.Phrase == "" {
		return &ValidationError{Field: "phrase", Message: "must not be empty"}
	}
	if rule.Level == "" {
		rule.Level = model.AlertLevelWarning
	}
	if !model.ValidLevel(rule.Level) {
		return &ValidationError{Field: "level", Message: "must be warning or critical"}
	}

	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ValidationError{Field: "phrase", Message: "rule already exists"}
		}
		s.logger.Error("rules.add_failed", "phrase", rule.Phrase, "error", err)
		return fmt.Errorf("failed to add alert rule: %w", err)
	}
	s.logger.Info("rules.added", "id", rule.ID, "phrase", rule.Phrase, "level", rule.Level)
	return nil
}

// SeedDefaults inserts rules when the table is empty. Existing tables are
// left alone so user edits survive restarts.
func (s *RuleService) SeedDefaults(ctx context.Context, rules []model.AlertRule) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.AlertRule{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count alert rules: %w", err)
	}
	if count > 0 || len(rules) == 0 {
		return 0, nil
	}

	seeded := 0
	for i := range rules {
		rule := rules[i]
		if err := s.AddRule(ctx, &rule); err != nil {
			s.logger.Warn("rules.seed_skipped", "phrase", rule.Phrase, "error", err)
			continue
		}
		seeded++
	}
	s.logger.Info("rules.seeded", "count", seeded)
	return seeded, nil
}

type rulesFile struct {
	Rules []model.AlertRule `yaml:"rules"`
}

// LoadRulesFile reads default alert rules from a YAML file.
func LoadRulesFile(path string) ([]model.AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes the YAML rules document.
func ParseRules(data []byte) ([]model.AlertRule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Phrase) == "" {
			return nil, fmt.Errorf("rule %d: phrase is empty", i)
		}
		if r.Level != "" && !model.ValidLevel(r.Level) {
			return nil, fmt.Errorf("rule %d: unknown level %q", i, r.Level)
		}
	}
	return f.Rules, nil
}
