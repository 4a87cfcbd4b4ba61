package classify

import (
	"testing"

	"autorespond/internal/domain"
)

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLabel domain.Label
		wantReply string
		wantErr   bool
	}{
		{
			name:      "interested",
			input:     "Interested_Thanks, let's schedule a demo call.",
			wantLabel: domain.LabelInterested,
			wantReply: "Thanks, let's schedule a demo call.",
		},
		{
			name:      "not-interested",
			input:     "NotInterested_Thanks for letting us know.",
			wantLabel: domain.LabelNotInterested,
			wantReply: "Thanks for letting us know.",
		},
		{
			name:      "more-information",
			input:     "MoreInformation_Happy to share details, how about a call?",
			wantLabel: domain.LabelMoreInformation,
			wantReply: "Happy to share details, how about a call?",
		},
		{
			name:      "surrounding-whitespace",
			input:     "  Interested_Sounds great.\n",
			wantLabel: domain.LabelInterested,
			wantReply: "Sounds great.",
		},
		{
			name:    "two-separators",
			input:   "Interested_Great_Extra",
			wantErr: true,
		},
		{
			name:    "no-separator",
			input:   "Interested",
			wantErr: true,
		},
		{
			name:    "unknown-label",
			input:   "Spam_Go away.",
			wantErr: true,
		},
		{
			name:    "case-mismatch",
			input:   "interested_Sounds good.",
			wantErr: true,
		},
		{
			name:    "empty-reply",
			input:   "Interested_",
			wantErr: true,
		},
		{
			name:    "escalation-never-returned-by-model",
			input:   "HumanInterventionRequired_Please review.",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseCompletion(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseCompletion(%q) succeeded, want error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCompletion(%q) error: %v", tc.input, err)
			}
			if got.Label != tc.wantLabel || got.Reply != tc.wantReply {
				t.Errorf("parseCompletion(%q) = (%q, %q), want (%q, %q)",
					tc.input, got.Label, got.Reply, tc.wantLabel, tc.wantReply)
			}
		})
	}
}

func TestFallbackShape(t *testing.T) {
	fb := domain.Fallback()
	if fb.Label != domain.LabelHumanInterventionRequired {
		t.Errorf("fallback label = %q", fb.Label)
	}
	if fb.Reply != "" {
		t.Errorf("fallback reply = %q, want empty", fb.Reply)
	}
}
