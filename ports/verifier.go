package ports

// Verifier checks that signature is a signature of nonce by the key behind address.
// Malformed input never errors, it yields false.
type Verifier interface {
	Verify(address, nonce, signature string) bool
}

// AddressNormalizer is implemented by verifiers whose addresses have more
// than one textual form. Stores only ever see the normalized form.
type AddressNormalizer interface {
	NormalizeAddress(address string) string
}
