// Package auth verifies signed requests from trusted relays. Each request
// carries a timestamp, a single-use nonce and an HMAC-SHA256 signature over
// both plus the method, canonical path and body.
package auth

import (
	"container/list"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// HeaderRelayID names the relay whose secret signed the request.
	HeaderRelayID = "X-Relay-Id"
	// HeaderTimestamp is the unix timestamp (seconds) used when signing.
	HeaderTimestamp = "X-Timestamp"
	// HeaderNonce provides replay protection when combined with the timestamp.
	HeaderNonce = "X-Nonce"
	// HeaderSignature carries the hex-encoded HMAC-SHA256 signature.
	HeaderSignature = "X-Signature"
	// MaxBodyForSignature is the largest body the verifier will hash.
	MaxBodyForSignature = 1 << 20

	maxTimestampSkew     = 2 * time.Minute
	maxNonceWindow       = 10 * time.Minute
	defaultNonceCapacity = 4096
	maxNonceCapacity     = 65536
	pruneInterval        = time.Minute
)

var (
	ErrMissingHeader = errors.New("auth: missing signature header")
	ErrUnknownRelay  = errors.New("auth: unknown relay")
	ErrStale         = errors.New("auth: timestamp outside allowed skew")
	ErrBadSignature  = errors.New("auth: invalid signature")
	ErrReplay        = errors.New("auth: nonce already used")
	ErrBodyTooLarge  = errors.New("auth: body too large to verify")
)

// Principal is an authenticated relay.
type Principal struct {
	RelayID string
}

// NonceRecord is a persisted nonce observation.
type NonceRecord struct {
	RelayID    string
	Timestamp  string
	Nonce      string
	ObservedAt time.Time
}

// NonceStore persists nonce usage so replays are refused across restarts.
type NonceStore interface {
	// Remember records rec and reports whether it had been seen before.
	Remember(ctx context.Context, rec NonceRecord) (bool, error)
	Since(ctx context.Context, cutoff time.Time) ([]NonceRecord, error)
	Prune(ctx context.Context, cutoff time.Time) error
}

// Verifier checks relay signatures.
type Verifier struct {
	secrets  map[string][]byte
	skew     time.Duration
	window   time.Duration
	capacity int
	nowFn    func() time.Time
	store    NonceStore

	mu         sync.Mutex
	recent     map[string]*nonceCache
	lastPruned time.Time
}

// Options tunes a Verifier. Zero values pick safe defaults and values above
// the hard limits are clamped.
type Options struct {
	Skew          time.Duration
	NonceWindow   time.Duration
	NonceCapacity int
	Now           func() time.Time
	Store         NonceStore
}

// NewVerifier builds a verifier for relay id → shared secret.
func NewVerifier(secrets map[string]string, opts Options) *Verifier {
	keys := make(map[string][]byte, len(secrets))
	for id, secret := range secrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			keys[strings.TrimSpace(id)] = []byte(secret)
		}
	}
	v := &Verifier{
		secrets:  keys,
		skew:     clampDuration(opts.Skew, maxTimestampSkew),
		window:   clampDuration(opts.NonceWindow, maxNonceWindow),
		capacity: opts.NonceCapacity,
		nowFn:    opts.Now,
		store:    opts.Store,
		recent:   make(map[string]*nonceCache),
	}
	if v.capacity <= 0 {
		v.capacity = defaultNonceCapacity
	}
	if v.capacity > maxNonceCapacity {
		v.capacity = maxNonceCapacity
	}
	if v.nowFn == nil {
		v.nowFn = time.Now
	}
	return v
}

func clampDuration(d, limit time.Duration) time.Duration {
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// Verify validates the signature headers on r against body.
func (v *Verifier) Verify(r *http.Request, body []byte) (*Principal, error) {
	if len(body) > MaxBodyForSignature {
		return nil, ErrBodyTooLarge
	}
	relay := strings.TrimSpace(r.Header.Get(HeaderRelayID))
	timestamp := strings.TrimSpace(r.Header.Get(HeaderTimestamp))
	nonce := strings.TrimSpace(r.Header.Get(HeaderNonce))
	signature := strings.TrimSpace(r.Header.Get(HeaderSignature))
	if relay == "" || timestamp == "" || nonce == "" || signature == "" {
		return nil, ErrMissingHeader
	}
	secret, ok := v.secrets[relay]
	if !ok {
		return nil, ErrUnknownRelay
	}
	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStale, err)
	}
	now := v.nowFn().UTC()
	if skew := now.Sub(time.Unix(secs, 0)); skew > v.skew || -skew > v.skew {
		return nil, ErrStale
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	expected := Sign(secret, timestamp, nonce, r.Method, CanonicalRequestPath(r), body)
	if !hmac.Equal(provided, expected) {
		return nil, ErrBadSignature
	}
	seen, err := v.remember(r.Context(), NonceRecord{RelayID: relay, Timestamp: timestamp, Nonce: nonce, ObservedAt: now})
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, ErrReplay
	}
	return &Principal{RelayID: relay}, nil
}

// Warm loads nonces persisted since cutoff into memory.
func (v *Verifier) Warm(ctx context.Context, cutoff time.Time) error {
	if v.store == nil {
		return nil
	}
	records, err := v.store.Since(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("load persisted nonces: %w", err)
	}
	for _, rec := range records {
		v.cache(rec.RelayID).add(rec.Timestamp+"|"+rec.Nonce, rec.ObservedAt)
	}
	return nil
}

func (v *Verifier) remember(ctx context.Context, rec NonceRecord) (bool, error) {
	cache := v.cache(rec.RelayID)
	key := rec.Timestamp + "|" + rec.Nonce
	if cache.contains(key, rec.ObservedAt) {
		return true, nil
	}
	if v.store != nil {
		if err := v.prune(ctx, rec.ObservedAt); err != nil {
			return false, err
		}
		seen, err := v.store.Remember(ctx, rec)
		if err != nil {
			return false, fmt.Errorf("persist nonce: %w", err)
		}
		cache.add(key, rec.ObservedAt)
		return seen, nil
	}
	cache.add(key, rec.ObservedAt)
	return false, nil
}

func (v *Verifier) prune(ctx context.Context, now time.Time) error {
	v.mu.Lock()
	due := v.lastPruned.IsZero() || now.Sub(v.lastPruned) >= pruneInterval
	if due {
		v.lastPruned = now
	}
	v.mu.Unlock()
	if !due {
		return nil
	}
	if err := v.store.Prune(ctx, now.Add(-v.window)); err != nil {
		return fmt.Errorf("prune nonces: %w", err)
	}
	return nil
}

func (v *Verifier) cache(relay string) *nonceCache {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.recent[relay]
	if !ok {
		c = &nonceCache{ttl: v.window, capacity: v.capacity, entries: make(map[string]*list.Element), order: list.New()}
		v.recent[relay] = c
	}
	return c
}

// CanonicalRequestPath is the path plus the sorted raw query.
func CanonicalRequestPath(r *http.Request) string {
	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		parts := strings.Split(r.URL.RawQuery, "&")
		sort.Strings(parts)
		path += "?" + strings.Join(parts, "&")
	}
	return path
}

// Sign computes the request signature.
func Sign(secret []byte, timestamp, nonce, method, path string, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strings.Join([]string{timestamp, nonce, strings.ToUpper(method), path}, "\n")))
	mac.Write([]byte("\n"))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignRequest sets the signature headers on r for body.
func SignRequest(r *http.Request, relayID string, secret []byte, nonce string, now time.Time, body []byte) {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	r.Header.Set(HeaderRelayID, relayID)
	r.Header.Set(HeaderTimestamp, timestamp)
	r.Header.Set(HeaderNonce, nonce)
	r.Header.Set(HeaderSignature, hex.EncodeToString(Sign(secret, timestamp, nonce, r.Method, CanonicalRequestPath(r), body)))
}

// nonceCache is a bounded, time-windowed set of recently used nonces.
type nonceCache struct {
	ttl      time.Duration
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

type nonceEntry struct {
	key string
	at  time.Time
}

func (c *nonceCache) contains(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expire(now.Add(-c.ttl))
	_, ok := c.entries[key]
	return ok
}

func (c *nonceCache) add(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expire(now.Add(-c.ttl))
	if elem, ok := c.entries[key]; ok {
		elem.Value = nonceEntry{key: key, at: now}
		c.order.MoveToBack(elem)
		return
	}
	for c.order.Len() >= c.capacity {
		c.dropFront()
	}
	c.entries[key] = c.order.PushBack(nonceEntry{key: key, at: now})
}

func (c *nonceCache) expire(cutoff time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if !front.Value.(nonceEntry).at.Before(cutoff) {
			return
		}
		c.dropFront()
	}
}

func (c *nonceCache) dropFront() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.entries, front.Value.(nonceEntry).key)
}
