package oracle

import "rewardhub/native/campaign"

var (
	assertionPrefix = []byte("oracle/assertion/")
	tombstonePrefix = []byte("oracle/tombstone/")
	pendingPrefix   = []byte("oracle/pending/")
	rootPrefix      = []byte("oracle/root/")
	streamPrefix    = []byte("oracle/stream/")
	paidPrefix      = []byte("oracle/paid/")
	asserterPrefix  = []byte("oracle/asserter/")
	paramsKey       = []byte("oracle/params")
	unconfirmedKey  = []byte("oracle/unconfirmed")
)

func withPrefix(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = append(buf, p...)
	}
	return buf
}

func assertionKey(id AssertionID) []byte { return withPrefix(assertionPrefix, id[:]) }

func tombstoneKey(id AssertionID) []byte { return withPrefix(tombstonePrefix, id[:]) }

func pendingKey(cid campaign.ID) []byte { return withPrefix(pendingPrefix, cid[:]) }

func rootKey(cid campaign.ID) []byte { return withPrefix(rootPrefix, cid[:]) }

func streamKey(cid campaign.ID, asset string) []byte {
	return withPrefix(streamPrefix, cid[:], []byte(asset))
}

func paidKey(cid campaign.ID, ap [20]byte) []byte { return withPrefix(paidPrefix, cid[:], ap[:]) }

func asserterKey(addr [20]byte) []byte { return withPrefix(asserterPrefix, addr[:]) }
