// Package ratelimit holds the bucket names and default windows shared by the
// limiter implementations.
package ratelimit

import "time"

const (
	BucketPhoneSend   = "phone_send"
	BucketPhoneVerify = "phone_verify"
	BucketDefault     = "default"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultLimits caps code sends and verification attempts per phone.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		BucketPhoneSend:   {Limit: 3, Window: 10 * time.Minute},
		BucketPhoneVerify: {Limit: 10, Window: 10 * time.Minute},
		BucketDefault:     {Limit: 100, Window: time.Minute},
	}
}

// Lookup returns the limit for bucket, falling back to the default bucket.
func Lookup(limits map[string]Limit, bucket string) Limit {
	if v, ok := limits[bucket]; ok {
		return v
	}
	if v, ok := limits[BucketDefault]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}
