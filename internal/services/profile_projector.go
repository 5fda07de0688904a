package services

import (
	"strings"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
)

const minProfileFields = 2

type profileField struct {
	label string
	value func(p *models.UserProfile) *string
}

var projectedProfileFields = []profileField{
	{"Short-term Career Goal", func(p *models.UserProfile) *string { return p.ShortTermCareerGoal }},
	{"Ideal Role", func(p *models.UserProfile) *string { return p.IdealRoleDescription }},
	{"Core Strengths", func(p *models.UserProfile) *string { return p.CoreStrengths }},
	{"Skills to Avoid", func(p *models.UserProfile) *string { return p.SkillsToAvoid }},
	{"Preferred Industries", func(p *models.UserProfile) *string { return p.PreferredIndustries }},
	{"Industries to Avoid", func(p *models.UserProfile) *string { return p.IndustriesToAvoid }},
	{"Desired Title", func(p *models.UserProfile) *string { return p.DesiredTitle }},
	{"Non-negotiables", func(p *models.UserProfile) *string { return p.NonNegotiables }},
	{"Deal Breakers", func(p *models.UserProfile) *string { return p.DealBreakers }},
	{"Preferred Work Style", func(p *models.UserProfile) *string { return p.PreferredWorkStyle }},
	{"Remote Preference", func(p *models.UserProfile) *string {
		if p.IsRemotePreferred == nil {
			return nil
		}
		v := "Prefers on-site or hybrid"
		if *p.IsRemotePreferred {
			v = "Prefers remote"
		}
		return &v
	}},
}

// ProjectProfile renders the analysis-relevant profile fields as a labeled
// block, one "- Label: value" line per non-empty field.
func ProjectProfile(p *models.UserProfile) (string, error) {
	if p == nil {
		return "", profileTooSparse(0)
	}
	var lines []string
	for _, f := range projectedProfileFields {
		v := f.value(p)
		if v == nil {
			continue
		}
		s := strings.TrimSpace(*v)
		if s == "" {
			continue
		}
		lines = append(lines, "- "+f.label+": "+s)
	}
	if len(lines) < minProfileFields {
		return "", profileTooSparse(len(lines))
	}
	return strings.Join(lines, "\n"), nil
}
