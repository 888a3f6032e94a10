package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pizoo-client/internal/storage"
)

func TestWatermarkRatchetProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// For any sequence of dismissals, the stored watermark equals the
	// maximum acknowledged count and never moves backwards.
	properties.Property("watermark equals maximum of dismissed counts", prop.ForAll(
		func(counts []int) bool {
			ctx := context.Background()
			flags := storage.NewMemoryFlagStore()
			notifier := NewLikesNotifier(&mockLikesBackend{}, flags, "me", testLogger())

			max := 0
			for _, c := range counts {
				if err := notifier.Dismiss(ctx, c); err != nil {
					return false
				}
				if c > max {
					max = c
				}
			}

			stored, err := flags.GetInt(ctx, storage.KeyLastSeenLikesCount, "me")
			if err != nil {
				// nothing stored only when nothing positive was dismissed
				return max == 0
			}
			return stored == max
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}

func TestElapsedBucketProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	properties.Property("bucket boundaries follow floor arithmetic", prop.ForAll(
		func(diffMs int64) bool {
			at := now.Add(-time.Duration(diffMs) * time.Millisecond)
			label := FormatElapsed(at, now)

			mins := diffMs / 60000
			hours := diffMs / 3600000
			days := diffMs / 86400000

			switch {
			case mins < 60:
				return label == formatCount(mins, "min")
			case hours < 24:
				return label == formatCount(hours, "h")
			case days < 7:
				return label == formatCount(days, "d")
			default:
				return label == at.Format("Jan 2, 2006")
			}
		},
		gen.Int64Range(0, 30*24*3600*1000),
	))

	properties.TestingRun(t)
}

func formatCount(n int64, unit string) string {
	return fmt.Sprintf("%d %s ago", n, unit)
}
