package artifact

import (
	"testing"

	"github.com/netguy204/ve/internal/types"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.Kind
		from    types.Status
		to      types.Status
		wantErr bool
	}{
		{"chunk future to implementing", types.KindChunk, ChunkFuture, ChunkImplementing, false},
		{"chunk skip to active", types.KindChunk, ChunkFuture, ChunkActive, true},
		{"chunk terminal has no outgoing", types.KindChunk, ChunkSuperseded, ChunkFuture, true},
		{"narrative active to completed", types.KindNarrative, NarrativeActive, NarrativeCompleted, false},
		{"narrative active to superseded", types.KindNarrative, NarrativeActive, NarrativeSuperseded, false},
		{"unknown status", types.KindChunk, types.Status("BOGUS"), ChunkActive, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.kind, tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckTransition(%s, %s, %s) error = %v, wantErr %v", tt.kind, tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(types.KindChunk, ChunkFuture) {
		t.Fatal("FUTURE should not be terminal")
	}
	if !IsTerminal(types.KindChunk, ChunkSuperseded) {
		t.Fatal("SUPERSEDED should be terminal")
	}
	if !IsTerminal(types.KindInvestigation, InvestigationSolved) {
		t.Fatal("SOLVED should be terminal")
	}
}

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		kind types.Kind
		want types.Status
	}{
		{types.KindChunk, ChunkFuture},
		{types.KindNarrative, NarrativeDrafting},
		{types.KindSubsystem, SubsystemDiscovering},
		{types.KindInvestigation, InvestigationOngoing},
	}
	for _, tt := range tests {
		if got := InitialStatus(tt.kind); got != tt.want {
			t.Errorf("InitialStatus(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	if !IsValidStatus(types.KindChunk, ChunkActive) {
		t.Fatal("ACTIVE should be a valid chunk status")
	}
	if IsValidStatus(types.KindChunk, types.Status("NOT_A_STATUS")) {
		t.Fatal("bogus status should not be valid")
	}
}

func TestValidateShortName(t *testing.T) {
	tests := []struct {
		name    string
		short   string
		wantErr bool
	}{
		{"simple", "foo-bar_1", false},
		{"empty", "", true},
		{"uppercase", "FooBar", true},
		{"spaces", "foo bar", true},
		{"too long", "a123456789012345678901234567890123", true},
		{"max length", "a234567890123456789012345678901", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShortName(tt.short)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateShortName(%q) error = %v, wantErr %v", tt.short, err, tt.wantErr)
			}
		})
	}
}
