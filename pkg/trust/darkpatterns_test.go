package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDarkPatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"urgency",
			"Act NOW, your access expires tonight",
			[]string{PatternUrgencyPressure},
		},
		{
			"reward",
			"Congratulations! You are our lucky winner, claim your prize",
			[]string{PatternRewardTrap},
		},
		{
			"authority",
			"This is an official notice from the IRS",
			[]string{PatternAuthorityImpersonation},
		},
		{
			"all three in fixed order",
			"URGENT official notice: claim your free prize immediately or the police will be informed",
			[]string{PatternUrgencyPressure, PatternRewardTrap, PatternAuthorityImpersonation},
		},
		{"clean", "See you at the meeting tomorrow", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDarkPatterns(tt.text))
		})
	}
}

func TestDetectDarkPatterns_NoDuplicates(t *testing.T) {
	got := DetectDarkPatterns("urgent urgent urgent, expires immediately")
	assert.Equal(t, []string{PatternUrgencyPressure}, got)
}
