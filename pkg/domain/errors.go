package domain

import "errors"

// ErrInvalidArgument is returned when a value is out of range or malformed.
// It is always reported by the call that receives the bad value.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUnknownZone is returned when a group, region or version cannot be resolved.
// Identities are never validated at construction, so this surfaces at resolution time.
var ErrUnknownZone = errors.New("unknown zone")

// ErrOffsetMismatch is returned when a caller asserts an offset the rules do not accept.
var ErrOffsetMismatch = errors.New("offset mismatch")

// ErrInternalConsistency is returned by an engine holding neither transitions nor rules.
// Well-formed data never produces it; treat it as a defect.
var ErrInternalConsistency = errors.New("zone rules internal consistency")
