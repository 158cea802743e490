package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = NoKeyPointPlaceholder
	}
	return out
}

func TestExtractKeyPoints(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		summary string
		want    []string
	}{
		{
			name:    "summary sentences first, short sentences never backfilled",
			text:    "Rent is $1200. Pets not allowed. Lease ends May 2026.",
			summary: "Rent is $1200. Lease ends May 2026.",
			want: append([]string{"Rent is $1200.", "Lease ends May 2026."},
				placeholders(3)...),
		},
		{
			name:    "empty text",
			text:    "",
			summary: "anything",
			want:    placeholders(5),
		},
		{
			name:    "blank text",
			text:    " \n\t ",
			summary: "",
			want:    placeholders(5),
		},
		{
			name:    "no summary falls back to long sentences",
			text:    "Tenant pays all utilities monthly. Ok. Security deposit equals two months rent.",
			summary: SummaryErrorSentinel,
			want: append([]string{
				"Tenant pays all utilities monthly.",
				"Security deposit equals two months rent.",
			}, placeholders(3)...),
		},
		{
			name:    "duplicates are selected once",
			text:    "Payment is due monthly on the first. Payment is due monthly on the first. Tenant pays utilities and water bills.",
			summary: "Payment is due monthly on the first.",
			want: append([]string{
				"Payment is due monthly on the first.",
				"Tenant pays utilities and water bills.",
			}, placeholders(3)...),
		},
		{
			name:    "relevant sentences capped at five",
			text:    "One is here. Two is here. Three is here. Four is here. Five is here. Six is here.",
			summary: "One is here. Two is here. Three is here. Four is here. Five is here. Six is here.",
			want:    []string{"One is here.", "Two is here.", "Three is here.", "Four is here.", "Five is here."},
		},
		{
			name:    "relevant before backfill regardless of position",
			text:    "The landlord maintains the roof and walls. Rent is $900. The tenant maintains the garden area.",
			summary: "Rent is $900.",
			want: append([]string{
				"Rent is $900.",
				"The landlord maintains the roof and walls.",
				"The tenant maintains the garden area.",
			}, placeholders(2)...),
		},
		{
			name:    "every point ends with a period",
			text:    "Rent is due on the first day of each month! Is the deposit refundable at all? The lease renews every single year",
			summary: "",
			want: append([]string{
				"Rent is due on the first day of each month.",
				"Is the deposit refundable at all.",
				"The lease renews every single year.",
			}, placeholders(2)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeyPoints(tt.text, tt.summary)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractKeyPointsAlwaysFive(t *testing.T) {
	inputs := []struct{ text, summary string }{
		{"", ""},
		{".", "."},
		{"!!! ??? ...", "!!!"},
		{"No punctuation at all in this rather long line of text", ""},
		{strings.Repeat("This sentence is long enough to count. ", 20), "This sentence is long enough to count."},
		{"日本語の文です。 Another sentence that is long enough.", "日本語の文です。"},
		{"a\nb\nc", "a"},
	}
	for _, in := range inputs {
		got := ExtractKeyPoints(in.text, in.summary)
		assert.Len(t, got, KeyPointCount, "text=%q", in.text)
		for _, p := range got {
			assert.NotEmpty(t, p)
			assert.True(t, strings.HasSuffix(p, "."), "point %q", p)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"decimals stay intact", "Rate is 3.5 percent. Next one!  Third?", []string{"Rate is 3.5 percent.", "Next one!", "Third?"}},
		{"newlines are boundaries after punctuation", "First.\nSecond.\n\nThird", []string{"First.", "Second.", "Third"}},
		{"no terminal punctuation", "page one\n\npage three", []string{"page one\n\npage three"}},
		{"only whitespace", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.text))
		})
	}
}
