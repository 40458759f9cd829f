// Package ctransfer implements the command dispatcher and the six
// command state machines of spec.md §4.3-§4.6: List, Upload, Download,
// Rename, Delete, and Logout, synchronous from the client's point of
// view and layered entirely on top of a *csession.Session.
//
// This file holds the client role of each command; server.go holds the
// server role and the dispatch loop.
package ctransfer

import (
	"io"
	"strings"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/csession"
	"github.com/tredeske/cloudbox/cwire"
	"github.com/tredeske/cloudbox/czero"
)

// Interrupted is polled between chunks by ClientUpload and between
// commands by cmd/cloud-client's menu loop (ClientDownload does not poll
// it), per the cooperative-shutdown
// design note in spec.md §9: a signal handler flips the flag, nobody
// calls the old signal-driven Logout path directly.
type Interrupted func() bool

func neverInterrupted() bool { return false }

// ClientList runs the List command (spec.md §4.6) and returns the
// filenames reported by the server.
func ClientList(sess *csession.Session) (files []string, status string, err error) {
	if err = sess.Seal(cwire.ListReq, nil); err != nil {
		return
	}
	typ, body, oerr := sess.Open(cwire.ListAns)
	if oerr != nil {
		err = oerr
		return
	}
	if typ == cwire.Error {
		status = string(body)
		return
	}
	listing := strings.TrimRight(string(body), "\x00")
	if len(listing) > 0 {
		files = strings.Split(listing, "\n")
	}
	return
}

// ClientUpload runs the Upload command (spec.md §4.4). src is read in
// CHUNK_SIZE windows; size is informational only (used for the initial
// size check against FsizeMax before any bytes are sent).
func ClientUpload(sess *csession.Session, filename string, src io.Reader, size int64,
	interrupted Interrupted,
) (status string, err error) {
	if interrupted == nil {
		interrupted = neverInterrupted
	}
	if size > csession.FsizeMax {
		return "", cerr.Wrap(cerr.ErrPolicy, nil,
			"file is %d bytes, exceeds limit %d", size, csession.FsizeMax)
	}

	nameField, err := EncodeFilename(filename)
	if err != nil {
		return
	}
	defer czero.Bytes(nameField)

	if err = sess.Seal(cwire.UploadReq, nameField); err != nil {
		return
	}
	typ, body, oerr := sess.Open(cwire.UploadAns)
	if oerr != nil {
		err = oerr
		return
	}
	if typ == cwire.Error {
		return string(body), nil // spec.md §4.4: terminate successfully, no file sent
	}
	status = string(body)

	buf := make([]byte, csession.ChunkSize)
	defer czero.Bytes(buf)

	for {
		if interrupted() {
			// An Error seal (rather than UploadEnd) tells serverUpload to
			// discard the temp file instead of committing a truncated one.
			err = sess.Seal(cwire.Error, []byte("upload interrupted"))
			if err == nil {
				sess.Open(cwire.UploadRes)
			}
			return status, cerr.Wrap(cerr.ErrPolicy, nil, "upload interrupted")
		}

		n, rerr := io.ReadFull(src, buf)
		switch {
		case rerr == nil: // full CHUNK_SIZE read, more may follow
			if err = sess.Seal(cwire.UploadChunk, buf[:n]); err != nil {
				return
			}
		case rerr == io.ErrUnexpectedEOF || rerr == io.EOF:
			// partial (possibly empty) final read: UploadEnd, then stop.
			if err = sess.Seal(cwire.UploadEnd, buf[:n]); err != nil {
				return
			}
			typ, body, oerr = sess.Open(cwire.UploadRes)
			if oerr != nil {
				err = oerr
				return
			}
			status = string(body)
			return
		default:
			err = cerr.Wrap(cerr.ErrIo, rerr, "reading local file %q", filename)
			return
		}
	}
}

// ClientDownload runs the Download command (spec.md §4.5), writing the
// received chunks to dst. If the server reports Error instead of
// DownloadAns, the command ends with no chunks ever having crossed the
// wire.
//
// complete is true only once DownloadEnd has been observed with no
// intervening error; a caller writing to a file should discard whatever
// was written to dst when complete is false (spec.md §8 scenario 5:
// a tampered download must leave no partial file behind).
func ClientDownload(sess *csession.Session, filename string, dst io.Writer) (status string, complete bool, err error) {
	nameField, err := EncodeFilename(filename)
	if err != nil {
		return
	}
	defer czero.Bytes(nameField)

	if err = sess.Seal(cwire.DownloadReq, nameField); err != nil {
		return
	}
	typ, body, oerr := sess.Open(cwire.DownloadAns)
	if oerr != nil {
		err = oerr
		return
	}
	if typ == cwire.Error {
		return string(body), false, nil
	}
	status = string(body)

	for {
		typ, body, oerr = sess.Open(cwire.DownloadChunk, cwire.DownloadEnd)
		if oerr != nil {
			err = oerr
			return status, false, err
		}
		if len(body) > 0 {
			if _, werr := dst.Write(body); werr != nil {
				err = cerr.Wrap(cerr.ErrIo, werr, "writing local file %q", filename)
				czero.Bytes(body)
				return status, false, err
			}
		}
		czero.Bytes(body)
		if typ == cwire.DownloadEnd {
			return status, true, nil
		}
	}
}

// ClientRename runs the Rename command (spec.md §4.6).
func ClientRename(sess *csession.Session, oldName, newName string) (status string, err error) {
	plaintext := append(append([]byte(oldName), 0), append([]byte(newName), 0)...)
	defer czero.Bytes(plaintext)

	if err = sess.Seal(cwire.RenameReq, plaintext); err != nil {
		return
	}
	_, body, oerr := sess.Open(cwire.RenameAns)
	if oerr != nil {
		err = oerr
		return
	}
	return string(body), nil
}

// ClientDeleteRequest starts the Delete command (spec.md §4.6): it sends
// the target filename and returns the server's confirmation prompt. If
// the server rejects the request outright (no such file), done is true
// and status carries the rejection - there is no DeleteConfirm round to
// run in that case.
func ClientDeleteRequest(sess *csession.Session, filename string) (prompt, status string, done bool, err error) {
	nameField, err := EncodeFilename(filename)
	if err != nil {
		return
	}
	defer czero.Bytes(nameField)

	if err = sess.Seal(cwire.DeleteReq, nameField); err != nil {
		return
	}
	typ, body, oerr := sess.Open(cwire.DeleteAns)
	if oerr != nil {
		err = oerr
		return
	}
	if typ == cwire.Error {
		return "", string(body), true, nil
	}
	prompt = string(body)
	return
}

// ClientDeleteConfirm finishes a Delete command started by
// ClientDeleteRequest. confirm is whatever the user typed in response to
// the prompt; only "y" (case-insensitive, trimmed) causes deletion.
func ClientDeleteConfirm(sess *csession.Session, confirm string) (status string, err error) {
	if err = sess.Seal(cwire.DeleteConfirm, []byte(confirm)); err != nil {
		return
	}
	_, body, oerr := sess.Open(cwire.DeleteRes)
	if oerr != nil {
		err = oerr
		return
	}
	status = string(body)
	return
}

// ClientLogout runs the Logout command (spec.md §4.6). Per spec.md §4.6,
// any send failure during logout is swallowed once the key is zeroized;
// the caller should close the connection regardless of the returned
// error.
func ClientLogout(sess *csession.Session) error {
	if err := sess.Seal(cwire.LogoutReq, nil); err != nil {
		sess.Close()
		return nil
	}
	_, _, err := sess.Open(cwire.LogoutAns)
	sess.Close()
	return err
}
