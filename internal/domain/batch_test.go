package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accepted(id string, buyer, asset uint64, name string) Trade {
	return Trade{
		ID:         id,
		SellerID:   account,
		BuyerID:    buyer,
		Item:       Item{AssetID: asset, Name: name},
		TradeToken: "tok-" + id,
		TradeURL:   "https://steamcommunity.com/tradeoffer/new/?partner=" + id,
		AcceptedAt: ts(),
	}
}

func TestBuildBatches_GroupsSameBuyerSameItem(t *testing.T) {
	trades := []Trade{
		accepted("t1", 5, 100, "Widget"),
		accepted("t2", 6, 200, "Widget"),
		accepted("t3", 5, 101, "Widget"),
		accepted("t4", 5, 300, "Gadget"),
	}

	batches := BuildBatches(trades)
	require.Len(t, batches, 3)

	assert.Equal(t, BatchKey{BuyerID: 5, ItemName: "Widget"}, batches[0].Key)
	assert.Equal(t, []uint64{100, 101}, batches[0].Assets)
	assert.Equal(t, []string{"t1", "t3"}, batches[0].TradeIDs)
	assert.Equal(t, "t1", batches[0].PrimaryTradeID)
	assert.Equal(t, "tok-t1", batches[0].TradeToken)

	assert.Equal(t, BatchKey{BuyerID: 6, ItemName: "Widget"}, batches[1].Key)
	assert.Equal(t, BatchKey{BuyerID: 5, ItemName: "Gadget"}, batches[2].Key)
}

func TestBuildBatches_UnionHasNoDuplicates(t *testing.T) {
	trades := []Trade{
		accepted("t1", 5, 100, "Widget"),
		accepted("t2", SteamID64Base+5, 101, "Widget"), // misma cuenta en forma community
		accepted("t3", 7, 102, "Widget"),
		accepted("t4", 7, 103, "Sticker"),
		accepted("t5", 8, 104, "Widget"),
	}
	batches := BuildBatches(trades)

	seen := map[uint64]int{}
	tradeSeen := map[string]int{}
	for _, b := range batches {
		for _, a := range b.Assets {
			seen[a]++
		}
		for _, id := range b.TradeIDs {
			tradeSeen[id]++
		}
		assert.Equal(t, b.Assets, b.Remaining, "remaining empieza igual a assets")
	}
	assert.Len(t, seen, 5)
	for asset, n := range seen {
		assert.Equal(t, 1, n, "asset %d en más de un batch", asset)
	}
	for id, n := range tradeSeen {
		assert.Equal(t, 1, n, "trade %s en más de un batch", id)
	}
	assert.Len(t, batches, 4)
}

func TestBuildBatches_OrderIndependentResultSet(t *testing.T) {
	a := []Trade{accepted("t1", 5, 100, "W"), accepted("t2", 5, 101, "W"), accepted("t3", 6, 102, "W")}
	b := []Trade{a[2], a[1], a[0]}

	keys := func(bs []TransferBatch) map[BatchKey][]uint64 {
		m := map[BatchKey][]uint64{}
		for _, x := range bs {
			m[x.Key] = SortedAssets(x.Assets)
		}
		return m
	}
	assert.Equal(t, keys(BuildBatches(a)), keys(BuildBatches(b)))
}

func TestBuildBatches_Empty(t *testing.T) {
	assert.Empty(t, BuildBatches(nil))
}

func TestSameAssets(t *testing.T) {
	assert.True(t, SameAssets([]uint64{1, 2}, []uint64{2, 1}))
	assert.False(t, SameAssets([]uint64{1, 2}, []uint64{1}))       // subset
	assert.False(t, SameAssets([]uint64{1}, []uint64{1, 2}))       // superset
	assert.False(t, SameAssets([]uint64{1, 2}, []uint64{3, 4}))    // disjoint
	assert.False(t, SameAssets([]uint64{1, 2}, []uint64{1, 3}))
}

func TestSubtractAssets(t *testing.T) {
	got := SubtractAssets([]uint64{1, 2, 3}, AssetSet([]uint64{1, 2}))
	assert.Equal(t, []uint64{3}, got)
}

func TestProcessedSet(t *testing.T) {
	s := NewProcessedSet([]string{"b", "a"})
	assert.False(t, s.Dirty())
	assert.Equal(t, 1, s.Add("a", "c", ""))
	assert.True(t, s.Dirty())
	assert.True(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b", "c"}, s.IDs())

	s.MarkClean()
	assert.Equal(t, 2, s.Retain([]string{"c", "zzz"}))
	assert.Equal(t, []string{"c"}, s.IDs())
	assert.True(t, s.Dirty())
}

func TestOfferMessage(t *testing.T) {
	assert.Equal(t, "CSFloat Market Trade Offer #901. Thanks for using CSFloat!", OfferMessage("901", 1))
	assert.Equal(t, "CSFloat Market Trade Offer #901 and 2 other items Thanks for using CSFloat!", OfferMessage("901", 3))

	b := TransferBatch{PrimaryTradeID: "7", Remaining: []uint64{1, 2}}
	assert.Equal(t, "CSFloat Market Trade Offer #7 and 1 other items Thanks for using CSFloat!", b.Message())
}

func TestCycleResult_HandledTradeIDs(t *testing.T) {
	r := &CycleResult{Batches: []BatchReport{
		{Batch: TransferBatch{TradeIDs: []string{"1", "2"}}, Outcome: OutcomeDispatched},
		{Batch: TransferBatch{TradeIDs: []string{"3"}}, Outcome: OutcomeMissing},
		{Batch: TransferBatch{TradeIDs: []string{"4"}}, Outcome: OutcomeCovered},
		{Batch: TransferBatch{TradeIDs: []string{"5"}}, Outcome: OutcomeFailed},
		{Batch: TransferBatch{TradeIDs: []string{"6"}}, Outcome: OutcomeConfirmed},
	}}
	assert.Equal(t, []string{"1", "2", "4", "6"}, r.HandledTradeIDs())
	assert.Zero(t, r.Duration())
}
