// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconidentity assigns each trade a canonical security id.
//
// Trades that share any identifier belong to the same security, transitively.
// The canonical id of a security is its strongest identifier, by the
// precedence ISIN > CUSIP > SecurityID > CONID > Symbol. Symbols are reused
// across instruments, so a shared symbol only joins two groups that do not
// both carry an identifier of the same stronger type.
package ibreconidentity

import (
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/samber/lo"
)

// Resolver groups trades into security buckets. Trades can be added from
// several source files; Add must not be called concurrently.
type Resolver struct {
	trades []*ibrecondata.Trade
}

// NewResolver returns a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Add appends trades in input order.
func (r *Resolver) Add(trades ...*ibrecondata.Trade) {
	r.trades = append(r.trades, trades...)
}

// Buckets resolves all added trades.
//
// Each returned trade is a copy with CanonicalSecurityID set. Buckets are
// ordered by their first trade, and trades keep input order within a bucket.
func (r *Resolver) Buckets() *ibrecondata.Buckets {
	return Resolve(r.trades)
}

// Resolve groups trades into security buckets. See Resolver.Buckets.
func Resolve(trades []*ibrecondata.Trade) *ibrecondata.Buckets {
	groups := newUnionFind(len(trades))
	// Strong identifiers always join.
	for _, keyType := range ibrecondata.AllKeyTypes {
		if keyType == ibrecondata.KeyTypeSymbol {
			continue
		}
		firstIndexByValue := make(map[string]int)
		for i, trade := range trades {
			value := trade.Keys.Get(keyType)
			if value == "" {
				continue
			}
			if first, ok := firstIndexByValue[value]; ok {
				groups.union(first, i)
			} else {
				firstIndexByValue[value] = i
			}
		}
	}
	joinBySymbol(trades, groups)

	canonicalIDs := canonicalIDsByRoot(trades, groups)
	buckets := ibrecondata.NewBuckets()
	for i, trade := range trades {
		resolved := trade.Clone()
		canonicalID, ok := canonicalIDs[groups.find(i)]
		if !ok {
			// No identifier at all: keep the trade on its own.
			canonicalID = "transaction:" + trade.TransactionID
		}
		resolved.CanonicalSecurityID = canonicalID
		buckets.Append(resolved.CanonicalSecurityID, resolved)
	}
	return buckets
}

// *** PRIVATE ***

// joinBySymbol joins groups sharing a symbol, in order of first appearance,
// unless both sides carry different identifiers of a stronger type.
func joinBySymbol(trades []*ibrecondata.Trade, groups *unionFind) {
	indexesBySymbol := make(map[string][]int)
	var symbols []string
	for i, trade := range trades {
		symbol := trade.Keys.Symbol
		if symbol == "" {
			continue
		}
		if _, ok := indexesBySymbol[symbol]; !ok {
			symbols = append(symbols, symbol)
		}
		indexesBySymbol[symbol] = append(indexesBySymbol[symbol], i)
	}
	for _, symbol := range symbols {
		// Recomputed per symbol since earlier symbols may have joined groups.
		strongKeyTypes := strongKeyTypesByRoot(trades, groups)
		var clusterRoots []int
		for _, root := range lo.Uniq(lo.Map(indexesBySymbol[symbol], func(i int, _ int) int { return groups.find(i) })) {
			joined := false
			for j, clusterRoot := range clusterRoots {
				if conflicts(strongKeyTypes[clusterRoot], strongKeyTypes[root]) {
					continue
				}
				newRoot := groups.union(clusterRoot, root)
				strongKeyTypes[newRoot] = mergeKeyTypes(strongKeyTypes[clusterRoot], strongKeyTypes[root])
				clusterRoots[j] = newRoot
				joined = true
				break
			}
			if !joined {
				clusterRoots = append(clusterRoots, root)
			}
		}
	}
}

// keyTypeSet is the set of strong identifier types a group carries.
type keyTypeSet map[ibrecondata.KeyType]struct{}

func strongKeyTypesByRoot(trades []*ibrecondata.Trade, groups *unionFind) map[int]keyTypeSet {
	result := make(map[int]keyTypeSet)
	for i, trade := range trades {
		root := groups.find(i)
		if _, ok := result[root]; !ok {
			result[root] = make(keyTypeSet)
		}
		for _, keyType := range ibrecondata.AllKeyTypes {
			if keyType != ibrecondata.KeyTypeSymbol && trade.Keys.Get(keyType) != "" {
				result[root][keyType] = struct{}{}
			}
		}
	}
	return result
}

// conflicts reports whether two groups both carry a strong identifier of the
// same type. Shared values would already have joined the groups, so equal
// types imply different values.
func conflicts(a keyTypeSet, b keyTypeSet) bool {
	for keyType := range a {
		if _, ok := b[keyType]; ok {
			return true
		}
	}
	return false
}

func mergeKeyTypes(a keyTypeSet, b keyTypeSet) keyTypeSet {
	merged := make(keyTypeSet, len(a)+len(b))
	for keyType := range a {
		merged[keyType] = struct{}{}
	}
	for keyType := range b {
		merged[keyType] = struct{}{}
	}
	return merged
}

// canonicalIDsByRoot picks, per group, the first-seen value of the strongest
// identifier type present in the group.
func canonicalIDsByRoot(trades []*ibrecondata.Trade, groups *unionFind) map[int]string {
	type candidate struct {
		keyType ibrecondata.KeyType
		value   string
	}
	best := make(map[int]candidate)
	for i, trade := range trades {
		root := groups.find(i)
		key, ok := trade.Keys.Strongest()
		if !ok {
			continue
		}
		current, ok := best[root]
		if !ok || key.Type.StrongerThan(current.keyType) {
			best[root] = candidate{keyType: key.Type, value: key.Value}
		}
	}
	canonicalIDs := make(map[int]string, len(best))
	for root, candidate := range best {
		canonicalIDs[root] = candidate.value
	}
	return canonicalIDs
}

// unionFind is a disjoint set over trade indexes. The root of a set is
// always its smallest index, so the result does not depend on union order.
type unionFind struct {
	parents []int
}

func newUnionFind(size int) *unionFind {
	parents := make([]int, size)
	for i := range parents {
		parents[i] = i
	}
	return &unionFind{parents: parents}
}

func (u *unionFind) find(i int) int {
	for u.parents[i] != i {
		u.parents[i] = u.parents[u.parents[i]]
		i = u.parents[i]
	}
	return i
}

// union joins the sets of a and b and returns the new root.
func (u *unionFind) union(a int, b int) int {
	rootA, rootB := u.find(a), u.find(b)
	if rootA == rootB {
		return rootA
	}
	if rootB < rootA {
		rootA, rootB = rootB, rootA
	}
	u.parents[rootB] = rootA
	return rootA
}
