/*
cloudbox is a two-party secure file-transfer service: a server that
stores files under per-user directories, and a client that lists,
uploads, downloads, renames, and deletes them over a single long-lived
authenticated-encrypted TCP session.

See cmd/cloud-server and cmd/cloud-client for the two binaries, and
package csession for the session layer the rest of the protocol is built
on.
*/
package cloudbox
