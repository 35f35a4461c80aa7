package models

import "errors"

// ErrUnavailable marks a degraded, non-fatal failure of a single data
// source. Transport problems on any of the chain or token fetches
// collapse into this sentinel; unexpected failures such as undecodable
// responses propagate as ordinary errors instead.
var ErrUnavailable = errors.New("unavailable")
