package domain

import (
	"testing"
	"time"
)

func TestRankOf(t *testing.T) {
	want := map[Persona]int{
		PersonaPendingApproval: 0,
		PersonaOperative:       1,
		PersonaHousingOfficer:  2,
		PersonaManager:         3,
		PersonaHeadOfService:   4,
		PersonaCOO:             5,
	}
	for p, rank := range want {
		if got := RankOf(p); got != rank {
			t.Errorf("RankOf(%q) = %d, want %d", p, got, rank)
		}
	}

	// Ranks are strictly increasing in listed order.
	personas := Personas()
	for i := 1; i < len(personas); i++ {
		if RankOf(personas[i]) <= RankOf(personas[i-1]) {
			t.Errorf("rank of %q (%d) is not above %q (%d)", personas[i], RankOf(personas[i]), personas[i-1], RankOf(personas[i-1]))
		}
	}

	for _, unknown := range []Persona{"", "admin", "Manager", "superuser", "coo "} {
		if got := RankOf(unknown); got != 0 {
			t.Errorf("RankOf(%q) = %d, want 0", unknown, got)
		}
	}
}

func TestParsePersona(t *testing.T) {
	tests := []struct {
		raw   string
		want  Persona
		valid bool
	}{
		{"manager", PersonaManager, true},
		{" Head-Of-Service ", PersonaHeadOfService, true},
		{"COO", PersonaCOO, true},
		{"", "", false},
		{"admin", "admin", false},
	}
	for _, tt := range tests {
		got, ok := ParsePersona(tt.raw)
		if got != tt.want || ok != tt.valid {
			t.Errorf("ParsePersona(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.valid)
		}
	}
}

func TestPersonaString(t *testing.T) {
	if got := Persona("").String(); got != "none" {
		t.Errorf("empty persona renders as %q, want none", got)
	}
	if got := PersonaOperative.String(); got != "operative" {
		t.Errorf("operative renders as %q", got)
	}
}

func TestUrgencyTierSeverity(t *testing.T) {
	want := map[UrgencyTier]Severity{
		TierBreached:    SeverityCritical,
		TierUrgent:      SeverityCritical,
		TierApproaching: SeverityWarning,
		TierCompliant:   SeverityCompliant,
	}
	for _, tier := range UrgencyTiers() {
		if got := tier.Severity(); got != want[tier] {
			t.Errorf("%s.Severity() = %s, want %s", tier, got, want[tier])
		}
	}
}

func TestUrgencyResultLabel(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{-5, "Overdue by 5 days"},
		{-1, "Overdue by 1 day"},
		{0, "Due today"},
		{1, "1 day remaining"},
		{10, "10 days remaining"},
	}
	for _, tt := range tests {
		if got := (UrgencyResult{RemainingDays: tt.days}).Label(); got != tt.want {
			t.Errorf("Label(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestStatusTokensAreAllMapped(t *testing.T) {
	seen := map[StatusToken]bool{}
	for _, tok := range StatusTokens() {
		if seen[tok] {
			t.Errorf("status token %q listed twice", tok)
		}
		seen[tok] = true
		switch tok.Severity() {
		case SeverityCritical, SeverityWarning, SeverityCompliant, SeverityNeutral:
		default:
			t.Errorf("status token %q maps to unknown severity %q", tok, tok.Severity())
		}
	}
	if got := StatusToken("foo-bar").Severity(); got != SeverityNeutral {
		t.Errorf("unknown token severity = %s, want neutral", got)
	}
}

func TestEntityTypes(t *testing.T) {
	for _, e := range EntityTypes() {
		parsed, ok := ParseEntityType(string(e))
		if !ok || parsed != e {
			t.Errorf("ParseEntityType(%q) = (%q, %v)", e, parsed, ok)
		}
		if e.DisplayName() == "Entity" {
			t.Errorf("entity %q has no display name", e)
		}
	}
	if _, ok := ParseEntityType("landlord"); ok {
		t.Error("expected landlord to be rejected")
	}
}

func TestExportOutcomeFilename(t *testing.T) {
	o := ExportOutcome{Entity: EntityProperty, ID: "42"}
	if got := o.Filename(); got != "property-42-hact.json" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestDate(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	got := Date(time.Date(2024, 1, 10, 23, 30, 0, 0, loc))
	want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Date() = %v, want %v", got, want)
	}
}

func TestPersonaAtLeast(t *testing.T) {
	if !PersonaCOO.AtLeast(PersonaManager) || !PersonaManager.AtLeast(PersonaManager) {
		t.Error("expected coo and manager to satisfy manager")
	}
	if PersonaOperative.AtLeast(PersonaManager) || Persona("").AtLeast(PersonaOperative) {
		t.Error("expected operative and empty persona to fall short")
	}
	if !Persona("").AtLeast(PersonaPendingApproval) {
		t.Error("rank 0 satisfies the lowest requirement")
	}
}
