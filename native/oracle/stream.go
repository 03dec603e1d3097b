package oracle

import (
	"math/big"

	"rewardhub/core/state"
	"rewardhub/native/campaign"
)

// release advances s to now, emitting a linear share of the remainder over
// what is left of the window. Nothing is emitted before LastUpdate and
// everything is emitted at end.
func (s *Stream) release(now, end uint64) {
	if now <= s.LastUpdate {
		return
	}
	if now >= end {
		s.Remaining = big.NewInt(0)
		s.LastUpdate = now
		return
	}
	elapsed := new(big.Int).SetUint64(now - s.LastUpdate)
	window := new(big.Int).SetUint64(end - s.LastUpdate)
	emitted := new(big.Int).Mul(s.Remaining, elapsed)
	emitted.Quo(emitted, window)
	s.Remaining = new(big.Int).Sub(s.Remaining, emitted)
	s.LastUpdate = now
}

func loadStream(store state.Store, c *campaign.Campaign, asset string) (*Stream, error) {
	s := new(Stream)
	ok, err := store.KVGet(streamKey(c.ID, asset), s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Stream{Remaining: big.NewInt(0), LastUpdate: c.StartTime}, nil
	}
	if s.Remaining == nil {
		s.Remaining = big.NewInt(0)
	}
	return s, nil
}

func storeStream(store state.Store, cid campaign.ID, asset string, s *Stream) error {
	return store.KVPut(streamKey(cid, asset), s)
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
