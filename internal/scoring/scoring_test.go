package scoring

import (
	"math/rand"
	"testing"

	"github.com/mbd888/sentinel/internal/rules"
)

func triggered(weights ...float64) []rules.TriggeredRule {
	out := make([]rules.TriggeredRule, len(weights))
	for i, w := range weights {
		out[i] = rules.TriggeredRule{Name: "r", Weight: w}
	}
	return out
}

func TestScoreEmpty(t *testing.T) {
	s := NewScorer(DefaultDivisor)
	if got := s.Score(nil); got != 0 {
		t.Errorf("Score(nil) = %v, want 0", got)
	}
}

func TestScoreSum(t *testing.T) {
	s := NewScorer(25.0)
	if got := s.Score(triggered(5, 5, 2.5)); got != 0.5 {
		t.Errorf("Score = %v, want 0.5", got)
	}
}

func TestScoreSaturates(t *testing.T) {
	s := NewScorer(25.0)
	if got := s.Score(triggered(10, 10, 10, 10)); got != 1.0 {
		t.Errorf("Score = %v, want 1.0", got)
	}
}

func TestScoreMonotone(t *testing.T) {
	s := NewScorer(25.0)
	weights := []float64{2.0, 3.5, 5.0, 1.5, 4.0}
	prev := 0.0
	for i := 1; i <= len(weights); i++ {
		got := s.Score(triggered(weights[:i]...))
		if got < prev {
			t.Errorf("score decreased from %v to %v after adding a rule", prev, got)
		}
		prev = got
	}
}

func TestScoreOrderIndependent(t *testing.T) {
	s := NewScorer(25.0)
	weights := []float64{2.0, 3.5, 5.0, 1.5, 4.0, 2.5}
	want := s.Score(triggered(weights...))

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]float64(nil), weights...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := s.Score(triggered(shuffled...)); got != want {
			t.Fatalf("score depends on order: %v != %v", got, want)
		}
	}
}

func TestBadDivisorFallsBack(t *testing.T) {
	s := NewScorer(-3)
	if s.Divisor() != DefaultDivisor {
		t.Errorf("Divisor = %v, want default %v", s.Divisor(), DefaultDivisor)
	}
}
