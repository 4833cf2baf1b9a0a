package services

import (
	"testing"

	"heistctf/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAwardedPointsStatic(t *testing.T) {
	ch := &models.Challenge{Points: 300, DynamicPoints: false, Attempts: 50, Solves: 40}
	assert.Equal(t, 300, AwardedPoints(ch))
}

func TestAwardedPointsDynamic(t *testing.T) {
	tests := []struct {
		name string
		ch   models.Challenge
		want int
	}{
		{
			name: "no attempts yet pays double base",
			ch:   models.Challenge{Points: 100, DynamicPoints: true, MinPoints: 50, MaxPoints: 200},
			want: 200,
		},
		{
			name: "every attempt solved pays base",
			ch:   models.Challenge{Points: 100, DynamicPoints: true, MinPoints: 50, MaxPoints: 200, Attempts: 10, Solves: 10},
			want: 100,
		},
		{
			name: "half solve rate pays one and a half base",
			ch:   models.Challenge{Points: 100, DynamicPoints: true, MinPoints: 50, MaxPoints: 200, Attempts: 10, Solves: 5},
			want: 150,
		},
		{
			name: "clamped to max",
			ch:   models.Challenge{Points: 100, DynamicPoints: true, MinPoints: 50, MaxPoints: 120},
			want: 120,
		},
		{
			name: "zero bounds default to half and double base",
			ch:   models.Challenge{Points: 100, DynamicPoints: true, Attempts: 4, Solves: 0},
			want: 200,
		},
		{
			name: "rounds half away from zero",
			ch:   models.Challenge{Points: 25, DynamicPoints: true, Attempts: 10, Solves: 9},
			want: 28, // 25 * 1.1 = 27.5
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AwardedPoints(&tt.ch))
		})
	}
}

func TestPenalty(t *testing.T) {
	assert.Equal(t, 0, Penalty(&models.Challenge{}))
	assert.Equal(t, 10, Penalty(&models.Challenge{PenaltyPoints: 10}))
}
