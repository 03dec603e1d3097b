package oracle

import (
	"bytes"
	"encoding/binary"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"rewardhub/native/campaign"
)

// LeafHash commits one action provider's cumulative entitlement for an epoch.
// Amounts pair with assets by position. The inner hash is hashed again so a
// leaf can never be confused with an interior node.
func LeafHash(cid campaign.ID, ap [20]byte, epoch uint64, assets []string, amounts []*big.Int) [32]byte {
	buf := make([]byte, 0, len(cid)+len(ap)+8+len(amounts)*64)
	buf = append(buf, cid[:]...)
	buf = append(buf, ap[:]...)
	buf = binary.BigEndian.AppendUint64(buf, epoch)
	for i, amount := range amounts {
		buf = append(buf, ethcrypto.Keccak256([]byte(assets[i]))...)
		buf = append(buf, ethcommon.LeftPadBytes(amount.Bytes(), 32)...)
	}
	inner := ethcrypto.Keccak256(buf)
	return ethcrypto.Keccak256Hash(inner)
}

func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return ethcrypto.Keccak256Hash(a[:], b[:])
}

// VerifyProof folds proof into leaf with sorted-pair hashing and compares the
// result with root.
func VerifyProof(root, leaf [32]byte, proof [][32]byte) bool {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

// Tree is a sorted-pair Merkle tree. An unpaired node at the end of a level
// is promoted unchanged.
type Tree struct {
	levels [][][32]byte
}

// BuildTree builds a tree over leaves in the supplied order.
func BuildTree(leaves [][32]byte) *Tree {
	if len(leaves) == 0 {
		return &Tree{}
	}
	level := append([][32]byte(nil), leaves...)
	levels := [][][32]byte{level}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}
}

// Root returns the tree root, or the zero hash for an empty tree.
func (t *Tree) Root() [32]byte {
	if t == nil || len(t.levels) == 0 {
		return [32]byte{}
	}
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the sibling path of leaf index i.
func (t *Tree) Proof(i int) ([][32]byte, bool) {
	if t == nil || len(t.levels) == 0 || i < 0 || i >= len(t.levels[0]) {
		return nil, false
	}
	var proof [][32]byte
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := i ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		i /= 2
	}
	return proof, true
}
