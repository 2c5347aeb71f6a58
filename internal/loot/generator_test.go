package loot

import "testing"

func TestGenerateNeverExceedsShortage(t *testing.T) {
	g := New(Config{Period: 1000, Probability: 1})
	n := g.Generate(1_000_000, 0, 3)
	if n > 3 {
		t.Fatalf("Generate() = %d, want <= 3 (player count)", n)
	}
}

func TestGenerateNeverNegative(t *testing.T) {
	g := New(Config{Period: 1000, Probability: 0.5})
	for i := 0; i < 10; i++ {
		if n := g.Generate(10, 5, 2); n < 0 {
			t.Fatalf("Generate() = %d, want >= 0", n)
		}
	}
}

func TestGenerateZeroWhenLootCoversPlayers(t *testing.T) {
	g := New(Config{Period: 1000, Probability: 1})
	if n := g.Generate(5000, 4, 3); n != 0 {
		t.Fatalf("Generate() = %d, want 0 when currentLoot >= players", n)
	}
}

func TestGenerateDeterministicGivenSameInputs(t *testing.T) {
	g1 := New(Config{Period: 500, Probability: 0.3})
	g2 := New(Config{Period: 500, Probability: 0.3})
	for i := 0; i < 20; i++ {
		a := g1.Generate(137, 1, 4)
		b := g2.Generate(137, 1, 4)
		if a != b {
			t.Fatalf("iteration %d: generators diverged: %d vs %d", i, a, b)
		}
	}
}

func TestGenerateResetsAccumulatorAfterSpawn(t *testing.T) {
	g := New(Config{Period: 100, Probability: 1})
	n := g.Generate(1000, 0, 5)
	if n == 0 {
		t.Fatalf("expected a spawn after a long accumulation window")
	}
	if g.timeWithoutLoot != 0 {
		t.Fatalf("timeWithoutLoot = %v, want reset to 0 after spawning", g.timeWithoutLoot)
	}
}

func TestGenerateDisabledWithNonPositivePeriod(t *testing.T) {
	g := New(Config{Period: 0, Probability: 1})
	if n := g.Generate(10_000, 0, 10); n != 0 {
		t.Fatalf("Generate() = %d, want 0 with zero period", n)
	}
}
