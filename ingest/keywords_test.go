package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHairAndMakeupCaption(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    bool
	}{
		{"empty", "", false},
		{"english hair", "Loving this new hairstyle!", true},
		{"uppercase", "BRIDAL HAIR GOALS", true},
		{"compound hashtag", "#bridalhairstylist at work", true},
		{"makeup", "Soft glam makeup for the big day", true},
		{"wedding only", "What a wedding!", true},
		{"groom", "The groom looked sharp", true},
		{"hebrew wedding", "עוד חתונה מושלמת", true},
		{"hebrew hair", "תסרוקת כלה מהממת", true},
		{"hebrew makeup", "איפור עדין לאירוע", true},
		{"unrelated", "Great pasta in Rome", false},
		{"unrelated hebrew", "פסטה מעולה ברומא", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HairAndMakeupCaption(tt.caption))
		})
	}
}

func TestCaptionKeywordsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, keyword := range captionKeywords {
		require.False(t, seen[keyword], "duplicate keyword %q", keyword)
		seen[keyword] = true
	}
}
