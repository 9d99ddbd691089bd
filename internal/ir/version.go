package ir

// Version constants for the anchor encoding and the kernel.
const (
	// HashVersion is the version suffix of every hash domain in hash.go.
	HashVersion = "v1"

	// KernelVersion is the qube kernel version recorded in journal sessions.
	KernelVersion = "0.1.0"
)

// GenesisAnchor is the anchor a kernel reports before it is initialized.
const GenesisAnchor = "GENESIS_HASH"
