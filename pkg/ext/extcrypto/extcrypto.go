// Package extcrypto provides digest functions over strings.
//
// MD5 and SHA-1 are provided for fingerprinting only and must not be used
// for security purposes.
package extcrypto

import (
	"context"
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // fingerprinting only
	"crypto/sha1" //nolint:gosec // fingerprinting only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/wandmagic/metapath/pkg/ext/extutil"
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// All returns every digest function.
func All() []*functions.Function {
	return []*functions.Function{
		Hash(),
		HMAC(),
	}
}

// Hash returns ext:hash($s, $algorithm): the lower-case hex digest of the
// UTF-8 bytes of $s. Supported algorithms are md5, sha1, sha256, sha384,
// sha512 and xxh64.
func Hash() *functions.Function {
	return extutil.New("hash", "(string?, string) as string", functions.Deterministic,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			h, err := newHasher(extutil.OptString(args[1]))
			if err != nil {
				return nil, err
			}
			h.Write([]byte(extutil.OptString(args[0])))
			return extutil.String(hex.EncodeToString(h.Sum(nil))), nil
		})
}

// HMAC returns ext:hmac($s, $key, $algorithm).
func HMAC() *functions.Function {
	return extutil.New("hmac", "(string?, string, string) as string", functions.Deterministic,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			algorithm := extutil.OptString(args[2])
			if _, err := newHasher(algorithm); err != nil {
				return nil, err
			}
			mac := hmac.New(func() hash.Hash {
				h, _ := newHasher(algorithm)
				return h
			}, []byte(extutil.OptString(args[1])))
			mac.Write([]byte(extutil.OptString(args[0])))
			return extutil.String(hex.EncodeToString(mac.Sum(nil))), nil
		})
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New(), nil //nolint:gosec
	case "sha1":
		return sha1.New(), nil //nolint:gosec
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	case "xxh64":
		return xxhash.New(), nil
	default:
		return nil, types.Errorf(types.ErrInvalidArgumentType,
			"unsupported algorithm %q; use md5, sha1, sha256, sha384, sha512 or xxh64", algorithm)
	}
}
