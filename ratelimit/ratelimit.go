package ratelimit

import (
	"context"
	"crypto/sha512"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"imagen/state"
)

// Represents a ratelimit bucket. Buckets are keyed per-identifier in redis
// so one user hammering an endpoint does not affect anyone else
type Bucket struct {
	BucketName string

	Requests int
	Time     time.Duration
}

type Limit struct {
	Exceeded bool

	// Number of requests made in the current window
	Made int

	// How long until the window resets, only set when Exceeded
	RetryAfter time.Duration
}

// Headers returns the ratelimit headers to attach to the response
func (l Limit) Headers(bucket Bucket) map[string]string {
	h := map[string]string{
		"X-Ratelimit-Bucket":   bucket.BucketName,
		"X-Ratelimit-Req-Made": strconv.Itoa(l.Made),
	}

	if l.Exceeded {
		h["Retry-After"] = strconv.FormatFloat(l.RetryAfter.Seconds(), 'g', -1, 64)
	}

	return h
}

// Identifier returns the ratelimit identifier for a request: the
// authenticated user id when present, otherwise a hash of the remote ip
func Identifier(r *http.Request, authID string) string {
	if authID != "" {
		return authID
	}

	remoteIp := strings.Split(strings.ReplaceAll(r.Header.Get("X-Forwarded-For"), " ", ""), ",")

	// For user privacy, hash the remote ip
	hasher := sha512.New()
	hasher.Write([]byte(remoteIp[0]))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Check increments the bucket counter for id and reports whether the
// request is over the limit
func Check(ctx context.Context, bucket Bucket, id string) (Limit, error) {
	rlKey := "rl:" + id + "-" + bucket.BucketName

	v := state.Redis.Get(ctx, rlKey).Val()

	if v == "" {
		v = "0"

		err := state.Redis.Set(ctx, rlKey, "0", bucket.Time).Err()

		if err != nil {
			return Limit{}, err
		}
	}

	err := state.Redis.Incr(ctx, rlKey).Err()

	if err != nil {
		return Limit{}, err
	}

	vInt, err := strconv.Atoi(v)

	if err != nil {
		return Limit{}, err
	}

	if vInt < 0 {
		state.Redis.Expire(ctx, rlKey, 1*time.Second)
		vInt = 0
	}

	if vInt > bucket.Requests {
		retryAfter := state.Redis.TTL(ctx, rlKey).Val()

		state.Redis.Expire(ctx, rlKey, retryAfter+2*time.Second)

		return Limit{Exceeded: true, Made: vInt, RetryAfter: retryAfter}, nil
	}

	return Limit{Made: vInt}, nil
}
