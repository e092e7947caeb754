package integrity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

func samplesFrom(values ...interface{}) []models.HistorySample {
	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	out := make([]models.HistorySample, 0, len(values))
	for i, v := range values {
		s := models.HistorySample{Time: base.Add(time.Duration(i) * time.Hour)}
		if f, ok := v.(float64); ok {
			val := f
			s.Value = &val
		}
		out = append(out, s)
	}
	return out
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		samples []models.HistorySample
		want    string
	}{
		{
			name:    "normal window",
			samples: samplesFrom(40.0, 42.0, 45.0, 43.0, 41.0, 44.0),
			want:    models.IntegrityNormal,
		},
		{
			name:    "single large step is a spike",
			samples: samplesFrom(40.0, 40.0, 40.0, 95.0, 40.0),
			want:    models.IntegritySpike,
		},
		{
			name:    "step of exactly 50 is not a spike",
			samples: samplesFrom(40.0, 90.0, 40.0),
			want:    models.IntegrityNormal,
		},
		{
			name:    "five identical values flatline",
			samples: samplesFrom(33.0, 33.0, 33.0, 33.0, 33.0, 35.0),
			want:    models.IntegrityFlatline,
		},
		{
			name:    "four identical values do not flatline",
			samples: samplesFrom(33.0, 33.0, 33.0, 33.0, 35.0, 36.0),
			want:    models.IntegrityNormal,
		},
		{
			name:    "negative reading",
			samples: samplesFrom(20.0, -3.0, 22.0),
			want:    models.IntegrityNegative,
		},
		{
			name:    "four missing samples flag incomplete",
			samples: samplesFrom(20.0, nil, nil, nil, nil, 25.0),
			want:    models.IntegrityMissing,
		},
		{
			name:    "three missing samples tolerated",
			samples: samplesFrom(20.0, nil, nil, nil, 25.0, 22.0),
			want:    models.IntegrityNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.samples)
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestAnalyze_CombinedFlags(t *testing.T) {
	// Spike plus negative in one window joins both flags.
	got := Analyze(samplesFrom(40.0, 120.0, -5.0, 40.0, 41.0))
	if !got.Has(models.IntegritySpike) || !got.Has(models.IntegrityNegative) {
		t.Errorf("Status = %q, want spike and negative flags", got.Status)
	}
	if !strings.Contains(got.Status, "+") {
		t.Errorf("Status = %q, want joined composite", got.Status)
	}
}

func TestAnalyze_Range(t *testing.T) {
	got := Analyze(samplesFrom(40.0, 95.0, 12.0, 64.0))
	if !got.HasRange {
		t.Fatal("HasRange = false, want true")
	}
	if got.Min != 12 || got.Max != 95 {
		t.Errorf("range = [%v, %v], want [12, 95]", got.Min, got.Max)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	got := Analyze(nil)
	if got.Status != models.IntegrityUnavailable {
		t.Errorf("Status = %q, want %q", got.Status, models.IntegrityUnavailable)
	}
	if got.HasRange {
		t.Error("HasRange = true, want false for empty history")
	}
}

type fakeFetcher struct {
	samples []models.HistorySample
	err     error
}

func (f *fakeFetcher) FetchHistory(_ context.Context, _, _ string, _ int) ([]models.HistorySample, error) {
	return f.samples, f.err
}

func TestForStation_FetchFailure(t *testing.T) {
	a := NewAnalyzer(&fakeFetcher{err: errors.New("timeout")}, 24)

	result, samples := a.ForStation(context.Background(), "35t")
	if result.Status != models.IntegrityUnavailable {
		t.Errorf("Status = %q, want %q", result.Status, models.IntegrityUnavailable)
	}
	if samples != nil {
		t.Errorf("samples = %v, want nil", samples)
	}
}

func TestForStation_Normal(t *testing.T) {
	a := NewAnalyzer(&fakeFetcher{samples: samplesFrom(40.0, 42.0, 45.0, 47.0, 44.0)}, 24)

	result, samples := a.ForStation(context.Background(), "35t")
	if result.Status != models.IntegrityNormal {
		t.Errorf("Status = %q, want %q", result.Status, models.IntegrityNormal)
	}
	if len(samples) != 5 {
		t.Errorf("len(samples) = %d, want 5", len(samples))
	}
}
