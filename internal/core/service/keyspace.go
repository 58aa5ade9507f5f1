package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respd-go/internal/core/domain"
	"github.com/yndnr/respd-go/internal/storage"
)

// SetArgs holds the parsed options of a SET command.
type SetArgs struct {
	TTL     time.Duration
	KeepTTL bool
	Mode    storage.SetMode
	// Get asks SET to return the previous value.
	Get bool
}

// SetOutcome is the result of Keyspace.Set.
type SetOutcome struct {
	Applied bool
	Old     []byte
	HadOld  bool
}

// Keyspace implements the string and generic key commands over a Store.
//
// It is safe for concurrent use; atomicity of read-modify-write commands is
// provided by Store.Update.
type Keyspace struct {
	store storage.Store
}

// NewKeyspace creates a Keyspace backed by store.
func NewKeyspace(store storage.Store) *Keyspace {
	return &Keyspace{store: store}
}

// Store returns the backing store.
func (k *Keyspace) Store() storage.Store {
	return k.store
}

// ============================================================================
// String Commands
// ============================================================================

// ParseSetArgs parses the option tail of SET.
//
// Supported options are EX seconds, PX milliseconds, NX, XX, KEEPTTL and GET.
func ParseSetArgs(options []string) (SetArgs, error) {
	var (
		args   SetArgs
		hasTTL bool
	)
	for i := 0; i < len(options); i++ {
		switch opt := strings.ToUpper(options[i]); opt {
		case "NX", "XX":
			mode := storage.SetIfAbsent
			if opt == "XX" {
				mode = storage.SetIfPresent
			}
			if args.Mode != storage.SetAlways && args.Mode != mode {
				return SetArgs{}, domain.ErrSyntax
			}
			args.Mode = mode
		case "KEEPTTL":
			if hasTTL {
				return SetArgs{}, domain.ErrSyntax
			}
			args.KeepTTL = true
		case "GET":
			args.Get = true
		case "EX", "PX":
			if hasTTL || args.KeepTTL || i+1 >= len(options) {
				return SetArgs{}, domain.ErrSyntax
			}
			i++
			n, err := strconv.ParseInt(options[i], 10, 64)
			if err != nil {
				return SetArgs{}, domain.ErrNotInteger
			}
			unit := time.Second
			if opt == "PX" {
				unit = time.Millisecond
			}
			ttl, err := expireDuration(n, unit, "set")
			if err != nil {
				return SetArgs{}, err
			}
			if ttl <= 0 {
				return SetArgs{}, domain.ErrInvalidExpireFor("set")
			}
			args.TTL = ttl
			hasTTL = true
		default:
			return SetArgs{}, domain.ErrSyntax
		}
	}
	return args, nil
}

// Get returns the value stored at key.
func (k *Keyspace) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, ok, err := k.store.Get(ctx, key)
	if err != nil {
		return nil, false, storageError(err)
	}
	return v, ok, nil
}

// Set stores value at key according to args.
func (k *Keyspace) Set(ctx context.Context, key, value []byte, args SetArgs) (SetOutcome, error) {
	res, err := k.store.Set(ctx, key, value, storage.SetOptions{
		TTL:     args.TTL,
		KeepTTL: args.KeepTTL,
		Mode:    args.Mode,
	})
	if err != nil {
		return SetOutcome{}, storageError(err)
	}
	return SetOutcome{Applied: res.Applied, Old: res.Old, HadOld: res.HadOld}, nil
}

// SetNX stores value only if key does not exist.
func (k *Keyspace) SetNX(ctx context.Context, key, value []byte) (bool, error) {
	out, err := k.Set(ctx, key, value, SetArgs{Mode: storage.SetIfAbsent})
	return out.Applied, err
}

// SetEX stores value with an expiry in seconds.
func (k *Keyspace) SetEX(ctx context.Context, key []byte, seconds int64, value []byte) error {
	ttl, err := expireDuration(seconds, time.Second, "setex")
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return domain.ErrInvalidExpireFor("setex")
	}
	_, err = k.Set(ctx, key, value, SetArgs{TTL: ttl})
	return err
}

// GetSet stores value and returns the previous one.
func (k *Keyspace) GetSet(ctx context.Context, key, value []byte) ([]byte, bool, error) {
	out, err := k.Set(ctx, key, value, SetArgs{})
	if err != nil {
		return nil, false, err
	}
	return out.Old, out.HadOld, nil
}

// MGet returns the values of keys; missing keys yield nil.
func (k *Keyspace) MGet(ctx context.Context, keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		v, ok, err := k.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

// MSet stores key/value pairs. pairs must have an even length.
func (k *Keyspace) MSet(ctx context.Context, pairs [][]byte) error {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return domain.ErrWrongArgs("mset")
	}
	for i := 0; i < len(pairs); i += 2 {
		if _, err := k.Set(ctx, pairs[i], pairs[i+1], SetArgs{}); err != nil {
			return err
		}
	}
	return nil
}

// IncrBy adds delta to the integer stored at key. A missing key counts as 0.
func (k *Keyspace) IncrBy(ctx context.Context, key []byte, delta int64) (int64, error) {
	var result int64
	_, err := k.store.Update(ctx, key, func(old []byte, exists bool) ([]byte, error) {
		var cur int64
		if exists {
			n, err := parseInteger(old)
			if err != nil {
				return nil, err
			}
			cur = n
		}
		if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
			return nil, domain.ErrOverflow
		}
		result = cur + delta
		return strconv.AppendInt(nil, result, 10), nil
	})
	if err != nil {
		return 0, updateError(err)
	}
	return result, nil
}

// DecrBy subtracts delta from the integer stored at key.
func (k *Keyspace) DecrBy(ctx context.Context, key []byte, delta int64) (int64, error) {
	if delta == math.MinInt64 {
		return 0, domain.NewOperationError("decrement would overflow")
	}
	return k.IncrBy(ctx, key, -delta)
}

// IncrByFloat adds delta to the float stored at key and returns the new
// value in its stored text form.
func (k *Keyspace) IncrByFloat(ctx context.Context, key []byte, delta float64) ([]byte, error) {
	out, err := k.store.Update(ctx, key, func(old []byte, exists bool) ([]byte, error) {
		var cur float64
		if exists {
			f, err := strconv.ParseFloat(string(old), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, domain.ErrNotFloat
			}
			cur = f
		}
		next := cur + delta
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return nil, domain.ErrNaN
		}
		return strconv.AppendFloat(nil, next, 'f', -1, 64), nil
	})
	if err != nil {
		return nil, updateError(err)
	}
	return out, nil
}

// Append appends value to the string at key and returns the new length.
func (k *Keyspace) Append(ctx context.Context, key, value []byte) (int64, error) {
	out, err := k.store.Update(ctx, key, func(old []byte, _ bool) ([]byte, error) {
		next := make([]byte, 0, len(old)+len(value))
		return append(append(next, old...), value...), nil
	})
	if err != nil {
		return 0, updateError(err)
	}
	return int64(len(out)), nil
}

// StrLen returns the length of the value at key, 0 when missing.
func (k *Keyspace) StrLen(ctx context.Context, key []byte) (int64, error) {
	v, _, err := k.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return int64(len(v)), nil
}

// ============================================================================
// Generic Key Commands
// ============================================================================

// Del removes keys and returns how many existed.
func (k *Keyspace) Del(ctx context.Context, keys [][]byte) (int64, error) {
	n, err := k.store.Delete(ctx, keys...)
	if err != nil {
		return 0, storageError(err)
	}
	return int64(n), nil
}

// Exists counts the given keys that exist. Repeated keys count repeatedly.
func (k *Keyspace) Exists(ctx context.Context, keys [][]byte) (int64, error) {
	n, err := k.store.Exists(ctx, keys...)
	if err != nil {
		return 0, storageError(err)
	}
	return int64(n), nil
}

// Expire sets a relative expiry of n units on key. Non-positive values
// delete the key. command names the caller in errors.
func (k *Keyspace) Expire(ctx context.Context, command string, key []byte, n int64, unit time.Duration) (bool, error) {
	ttl, err := expireDuration(n, unit, command)
	if err != nil {
		return false, err
	}
	ok, err := k.store.Expire(ctx, key, ttl)
	if err != nil {
		return false, storageError(err)
	}
	return ok, nil
}

// Persist removes the expiry of key.
func (k *Keyspace) Persist(ctx context.Context, key []byte) (bool, error) {
	ok, err := k.store.Persist(ctx, key)
	if err != nil {
		return false, storageError(err)
	}
	return ok, nil
}

// TTL returns the remaining lifetime of key in the given unit, or the
// Redis sentinels -1 (no expiry) and -2 (no key).
func (k *Keyspace) TTL(ctx context.Context, key []byte, unit time.Duration) (int64, error) {
	ttl, err := k.store.TTL(ctx, key)
	if err != nil {
		return 0, storageError(err)
	}
	switch ttl {
	case storage.NoExpiry:
		return -1, nil
	case storage.NoKey:
		return -2, nil
	}
	// Round to nearest like Redis does for TTL.
	return int64((ttl + unit/2) / unit), nil
}

// Type returns "string" for existing keys and "none" otherwise.
func (k *Keyspace) Type(ctx context.Context, key []byte) (string, error) {
	n, err := k.Exists(ctx, [][]byte{key})
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "none", nil
	}
	return "string", nil
}

// Keys returns the keys matching pattern, sorted.
func (k *Keyspace) Keys(ctx context.Context, pattern []byte) ([][]byte, error) {
	keys, err := k.store.Keys(ctx, pattern)
	if err != nil {
		return nil, storageError(err)
	}
	return keys, nil
}

// DBSize returns the number of live keys.
func (k *Keyspace) DBSize(ctx context.Context) (int64, error) {
	n, err := k.store.Len(ctx)
	if err != nil {
		return 0, storageError(err)
	}
	return int64(n), nil
}

// Flush removes every key.
func (k *Keyspace) Flush(ctx context.Context) error {
	if err := k.store.Flush(ctx); err != nil {
		return storageError(err)
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func expireDuration(n int64, unit time.Duration, command string) (time.Duration, error) {
	limit := math.MaxInt64 / int64(unit)
	if n > limit || n < -limit {
		return 0, domain.ErrInvalidExpireFor(command)
	}
	return time.Duration(n) * unit, nil
}

func parseInteger(b []byte) (int64, error) {
	// ParseInt accepts a leading '+', Redis does not.
	if len(b) == 0 || b[0] == '+' {
		return 0, domain.ErrNotInteger
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, domain.ErrNotInteger
	}
	return n, nil
}

func storageError(err error) error {
	return domain.ErrStorage.WithCause(err)
}

// updateError keeps operation errors raised inside an update function and
// wraps everything else as a storage failure.
func updateError(err error) error {
	var oe *domain.OperationError
	if errors.As(err, &oe) {
		return oe
	}
	return storageError(err)
}
