package protocol

import (
	"fmt"
	"math"

	"github.com/Masterminds/semver/v3"
)

// VersionPolicy is the decoder side of the versioning contract: the major
// version must match exactly, the minor version must be at least MinMinor.
type VersionPolicy struct {
	Major    uint16
	MinMinor uint16
}

// Check validates a decoded version pair against the policy.
func (p VersionPolicy) Check(major, minor uint16) error {
	if err := p.CheckMajor(major); err != nil {
		return err
	}
	return p.CheckMinor(minor)
}

// CheckMajor lets a streaming decoder reject a major before reading on.
func (p VersionPolicy) CheckMajor(major uint16) error {
	if major != p.Major {
		return &VersionError{Kind: MajorMismatch, Got: major, Want: p.Major}
	}
	return nil
}

func (p VersionPolicy) CheckMinor(minor uint16) error {
	if minor < p.MinMinor {
		return &VersionError{Kind: MinorTooOld, Got: minor, Want: p.MinMinor}
	}
	return nil
}

func (p VersionPolicy) String() string {
	return fmt.Sprintf("%d.%d", p.Major, p.MinMinor)
}

// ParseVersionPolicy reads a "major.minor" string such as "3.0". A patch
// component is tolerated but must be zero; pre-release tags are rejected.
func ParseVersionPolicy(raw string) (VersionPolicy, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return VersionPolicy{}, fmt.Errorf("parse version policy %q: %w", raw, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return VersionPolicy{}, fmt.Errorf("parse version policy %q: pre-release and build metadata are not allowed", raw)
	}
	if v.Patch() != 0 {
		return VersionPolicy{}, fmt.Errorf("parse version policy %q: patch component must be zero", raw)
	}
	if v.Major() > math.MaxUint16 || v.Minor() > math.MaxUint16 {
		return VersionPolicy{}, fmt.Errorf("parse version policy %q: component exceeds 16 bits", raw)
	}
	return VersionPolicy{Major: uint16(v.Major()), MinMinor: uint16(v.Minor())}, nil
}
