package campaign

import (
	"math/big"
	"math/rand"
	"testing"

	"rewardhub/core/state"
	"rewardhub/native/bank"
)

// TestConservationUnderRandomOperations drives random sequences of
// create/add/remove/claim/claimFees and checks after every step that no asset
// entry was debited beyond its gross and that the vault holds exactly the
// unspent escrow plus unclaimed fees.
func TestConservationUnderRandomOperations(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		f := newFixture(t)
		assets := []string{"X", "Y"}
		var campaigns []ID
		claimants := [][20]byte{claimer, newTestAddress(0x05), newTestAddress(0x06)}
		cumulative := map[[20]byte]map[string]int64{}

		for step := 0; step < 60; step++ {
			switch op := rng.Intn(5); {
			case op == 0 || len(campaigns) == 0:
				id, err := f.engine.CreateCampaign(provider, CreateRequest{
					Verifier: f.verifier.addr,
					Assets:   []string{assets[rng.Intn(2)]},
					Amounts:  bigs(1 + rng.Int63n(500)),
				})
				if err != nil {
					t.Fatalf("seed %d step %d create: %v", seed, step, err)
				}
				campaigns = append(campaigns, id)
			case op == 1:
				id := campaigns[rng.Intn(len(campaigns))]
				_ = f.engine.AddIncentives(provider, id, []string{assets[rng.Intn(2)]}, bigs(1+rng.Int63n(200)), nil)
			case op == 2:
				id := campaigns[rng.Intn(len(campaigns))]
				_ = f.engine.RemoveIncentives(provider, id, []string{assets[rng.Intn(2)]}, bigs(1+rng.Int63n(300)))
			case op == 3:
				id := campaigns[rng.Intn(len(campaigns))]
				ap := claimants[rng.Intn(len(claimants))]
				asset := assets[rng.Intn(2)]
				if cumulative[ap] == nil {
					cumulative[ap] = map[string]int64{}
				}
				cumulative[ap][asset] += rng.Int63n(400)
				f.verifier.setOwed(ap, asset, cumulative[ap][asset])
				if _, err := f.engine.Claim(ap, id, nil); err != nil {
					t.Fatalf("seed %d step %d claim: %v", seed, step, err)
				}
			default:
				if _, err := f.engine.ClaimFees(feeClaimant, assets[rng.Intn(2)], outsider); err != nil {
					t.Fatalf("seed %d step %d claim fees: %v", seed, step, err)
				}
			}
			assertConservation(t, f, campaigns, assets)
		}
	}
}

func assertConservation(t *testing.T, f *fixture, campaigns []ID, assets []string) {
	t.Helper()
	err := f.mgr.View(func(tx *state.Tx) error {
		for _, asset := range assets {
			held := big.NewInt(0)
			for _, id := range campaigns {
				bal, _, err := loadAsset(tx, id, asset)
				if err != nil {
					return err
				}
				if bal.Debited.Cmp(bal.Gross) > 0 {
					t.Fatalf("campaign %s asset %s debited %s > gross %s", id.Hex(), asset, bal.Debited, bal.Gross)
				}
				held.Add(held, bal.Unspent())
			}
			fees, err := feeBalance(tx, feeClaimant, asset)
			if err != nil {
				return err
			}
			held.Add(held, fees)
			vault, err := bank.Balance(tx, VaultAddress, asset)
			if err != nil {
				return err
			}
			if vault.Cmp(held) != 0 {
				t.Fatalf("vault %s holds %s, ledger accounts for %s", asset, vault, held)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("conservation check: %v", err)
	}
}
