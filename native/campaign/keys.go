package campaign

import "encoding/binary"

var (
	campaignRecordPrefix = []byte("campaign/record/")
	campaignAssetPrefix  = []byte("campaign/asset/")
	coProviderPrefix     = []byte("campaign/coprovider/")
	feeAccountPrefix     = []byte("campaign/fees/")
	pointsCommitPrefix   = []byte("points/committed/")
	nonceKey             = []byte("campaign/nonce")
	paramsKey            = []byte("campaign/params")
	idDomain             = []byte("rewardhub/campaign/id")
)

func campaignKey(id ID) []byte {
	return append(append([]byte(nil), campaignRecordPrefix...), id[:]...)
}

func assetKey(id ID, asset string) []byte {
	buf := make([]byte, 0, len(campaignAssetPrefix)+len(id)+1+len(asset))
	buf = append(buf, campaignAssetPrefix...)
	buf = append(buf, id[:]...)
	buf = append(buf, '/')
	return append(buf, asset...)
}

func coProviderKey(id ID, addr [20]byte) []byte {
	buf := make([]byte, 0, len(coProviderPrefix)+len(id)+1+len(addr))
	buf = append(buf, coProviderPrefix...)
	buf = append(buf, id[:]...)
	buf = append(buf, '/')
	return append(buf, addr[:]...)
}

func feeAccountKey(claimant [20]byte, asset string) []byte {
	buf := make([]byte, 0, len(feeAccountPrefix)+len(claimant)+1+len(asset))
	buf = append(buf, feeAccountPrefix...)
	buf = append(buf, claimant[:]...)
	buf = append(buf, '/')
	return append(buf, asset...)
}

func pointsCommittedKey(ip [20]byte, asset string) []byte {
	buf := make([]byte, 0, len(pointsCommitPrefix)+len(ip)+1+len(asset))
	buf = append(buf, pointsCommitPrefix...)
	buf = append(buf, ip[:]...)
	buf = append(buf, '/')
	return append(buf, asset...)
}

func idPreimage(nonce uint64, creator [20]byte) []byte {
	buf := make([]byte, 0, len(idDomain)+8+len(creator))
	buf = append(buf, idDomain...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return append(buf, creator[:]...)
}
