package mocks

import (
	"testing"

	"github.com/LurkingFox/Tradeworth-sub000/internal/calculator"
	"github.com/LurkingFox/Tradeworth-sub000/internal/normalize"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
)

func TestTradeGenerator_Generate(t *testing.T) {
	gen := NewTradeGenerator(42) // Fixed seed for reproducibility
	config := DefaultTradeConfig()
	config.Count = 200

	raws := gen.Generate(config)

	if len(raws) != 200 {
		t.Fatalf("expected 200 records, got %d", len(raws))
	}

	n := normalize.New(calculator.New(nil))
	hashes := make(map[string]int, len(raws))
	open := 0

	for i, raw := range raws {
		trade, err := n.Normalize(raw, types.ProvenanceImported)
		if err != nil {
			t.Fatalf("record %d does not normalize: %v", i, err)
		}

		if prev, ok := hashes[trade.DedupHash]; ok {
			t.Errorf("records %d and %d share a dedup hash", prev, i)
		}

		hashes[trade.DedupHash] = i

		if !trade.IsClosed() {
			open++
		}

		if raw.Pair != config.Pairs[i%len(config.Pairs)] {
			t.Errorf("unexpected pair at index %d: %s", i, raw.Pair)
		}
	}

	if open == 0 || open == len(raws) {
		t.Errorf("expected a mix of open and closed records, got %d open", open)
	}
}

func TestTradeGenerator_Reproducibility(t *testing.T) {
	// Same seed should produce same results
	config := DefaultTradeConfig()
	config.Count = 20

	first := NewTradeGenerator(42).Generate(config)
	second := NewTradeGenerator(42).Generate(config)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("records not reproducible at index %d: %+v and %+v", i, first[i], second[i])
		}
	}
}

func TestTradeGenerator_DifferentSeeds(t *testing.T) {
	config := DefaultTradeConfig()
	config.Count = 20

	first := NewTradeGenerator(42).Generate(config)
	second := NewTradeGenerator(123).Generate(config)

	same := 0
	for i := range first {
		if first[i].Entry == second[i].Entry {
			same++
		}
	}

	if same == len(first) {
		t.Error("different seeds produced identical data")
	}
}

func TestGenerateUnique(t *testing.T) {
	raws := GenerateUnique(1200)
	if len(raws) != 1200 {
		t.Fatalf("expected 1200 records, got %d", len(raws))
	}

	if raws[0].Date != "2024-01-01" || raws[5].Date != "2024-01-02" {
		t.Errorf("unexpected dates: %s, %s", raws[0].Date, raws[5].Date)
	}
}
