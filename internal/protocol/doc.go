// Package protocol owns the attestation wire contract shared by its codecs.
//
// Ownership boundary:
// - error taxonomy returned by every decoder
// - version policy (exact major, minimum minor)
// - read limits applied to untrusted length fields
//
// Subpackages:
// - identifier: 32-byte opaque ids and their hex text form
// - frame: the versioned attestation envelope
// - wrapper: the tagged host record that carries an envelope
package protocol
