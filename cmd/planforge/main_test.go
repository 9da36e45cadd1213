package main

import (
	"strings"
	"testing"

	"github.com/planforge/planforge/internal/store"
)

func TestSessionLine(t *testing.T) {
	zip := "output/mvp_meal_planner_20260830_120000.zip"

	tests := []struct {
		name string
		sess store.Session
		want []string
	}{
		{
			name: "completed with archive",
			sess: store.Session{
				Idea:      "meal planning for shift workers",
				Status:    store.StatusCompleted,
				ZipPath:   &zip,
				CreatedAt: "2026-08-30 12:00:00",
			},
			want: []string{"2026-08-30 12:00:00", "completed", "meal planning for shift workers", zip},
		},
		{
			name: "failed without archive",
			sess: store.Session{
				Idea:      "a marketplace for vintage synthesizers",
				Status:    store.StatusFailed,
				CreatedAt: "2026-08-29 09:30:00",
			},
			want: []string{"2026-08-29 09:30:00", "failed", "a marketplace for vintage synthesizers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sessionLine(tt.sess)
			for _, part := range tt.want {
				if !strings.Contains(got, part) {
					t.Errorf("sessionLine = %q, missing %q", got, part)
				}
			}
		})
	}

	if line := sessionLine(store.Session{Idea: "x", Status: store.StatusFailed, CreatedAt: "2026-08-29 09:30:00"}); strings.Contains(line, "→") {
		t.Errorf("sessionLine without archive = %q, should omit the arrow", line)
	}
}
