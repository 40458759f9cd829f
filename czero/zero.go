// Package czero provides the tiny "wipe before release" helper used
// everywhere a plaintext buffer or key holds secret material: session
// keys, filenames, and file content chunks (spec.md §4.2, "Zero-on-drop").
package czero

// Bytes overwrites b with zeros in place. Call it in a defer immediately
// after the last use of a secret buffer, mirroring the scoped-acquisition
// idiom the teacher uses for sockets and file handles (unet.Socket,
// uio.Pool): the cleanup travels with the acquisition, not with each
// early-return branch.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Array32 overwrites a 32-byte array (a session key) with zeros.
func Array32(a *[32]byte) {
	if a == nil {
		return
	}
	for i := range a {
		a[i] = 0
	}
}
