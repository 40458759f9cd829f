package ctransfer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tredeske/cloudbox/ulog"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/csession"
	"github.com/tredeske/cloudbox/cstore"
	"github.com/tredeske/cloudbox/cwire"
	"github.com/tredeske/cloudbox/czero"
)

// commandStarts is the set of message types that may legally open a
// command, per spec.md §4.3.
var commandStarts = []cwire.MessageType{
	cwire.ListReq, cwire.UploadReq, cwire.DownloadReq,
	cwire.RenameReq, cwire.DeleteReq, cwire.LogoutReq,
}

// RunServerLoop implements the server half of the command dispatcher,
// spec.md §4.3: each iteration opens exactly one command-start packet
// and hands it to the matching handler. It returns (true, nil) after a
// clean Logout, or (false, err) on any fatal protocol/IO failure. A
// command-local failure (Policy, StorageError) never reaches here as an
// error - the handler seals it into an Error packet and the loop
// continues.
func RunServerLoop(sess *csession.Session, storage *cstore.Storage) (loggedOut bool, err error) {
	for {
		typ, body, operr := sess.Open(commandStarts...)
		if operr != nil {
			return false, operr
		}

		switch typ {
		case cwire.ListReq:
			err = serverList(sess, storage)
		case cwire.UploadReq:
			err = serverUpload(sess, storage, body)
		case cwire.DownloadReq:
			err = serverDownload(sess, storage, body)
		case cwire.RenameReq:
			err = serverRename(sess, storage, body)
		case cwire.DeleteReq:
			err = serverDelete(sess, storage, body)
		case cwire.LogoutReq:
			err = serverLogout(sess)
			return true, err
		default:
			// Open() always lets cwire.Error through; per spec.md §4.3
			// any type other than the six command starts is fatal.
			return false, cerr.Wrap(cerr.ErrProtocol, nil,
				"unexpected command-start type %s", typ)
		}
		if err != nil {
			return false, err
		}
	}
}

// sealError seals a command-local failure to the peer as an Error
// packet and swallows any secondary send failure into the returned
// error, so the caller can decide whether that secondary failure is
// itself fatal (it is, since it means the socket is broken).
func sealError(sess *csession.Session, cause error) error {
	msg := cause.Error()
	ulog.DebugfFor("cloudbox", "sealing command-local error: %s", msg)
	if sendErr := sess.Seal(cwire.Error, []byte(msg)); sendErr != nil {
		return sendErr
	}
	return nil
}

func serverList(sess *csession.Session, storage *cstore.Storage) error {
	names, err := storage.List()
	if err != nil {
		return sealError(sess, err)
	}
	listing := ""
	for _, n := range names {
		listing += n + "\n"
	}
	listing = trimOneTrailingNewline(listing) + "\x00"
	return sess.Seal(cwire.ListAns, []byte(listing))
}

func trimOneTrailingNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}

func serverUpload(sess *csession.Session, storage *cstore.Storage, reqBody []byte) error {
	name, err := DecodeFilename(reqBody)
	if err != nil {
		return sealError(sess, err)
	}
	name, err = cstore.ValidateFilename(name)
	if err != nil {
		return sealError(sess, err)
	}
	if storage.Exists(name) {
		return sealError(sess, cerr.Wrap(cerr.ErrPolicy, nil, "%q already exists", name))
	}

	f, err := storage.OpenWriteTemp(name)
	if err != nil {
		return sealError(sess, err)
	}

	if err = sess.Seal(cwire.UploadAns, []byte("ready")); err != nil {
		f.Close()
		storage.AbortTemp(name)
		return err
	}

	var total int64
	var failure error
	for {
		typ, body, operr := sess.Open(cwire.UploadChunk, cwire.UploadEnd)
		if operr != nil {
			f.Close()
			storage.AbortTemp(name)
			return operr
		}

		if typ == cwire.Error {
			// Client aborted mid-upload (spec.md §5): discard the temp
			// file rather than committing a truncated one.
			czero.Bytes(body)
			f.Close()
			storage.AbortTemp(name)
			return sess.Seal(cwire.UploadRes, []byte("upload aborted"))
		}

		if failure == nil {
			total += int64(len(body))
			if total > csession.FsizeMax {
				failure = cerr.Wrap(cerr.ErrPolicy, nil,
					"upload of %q exceeds limit %d", name, csession.FsizeMax)
			} else if _, werr := f.Write(body); werr != nil {
				failure = cerr.Wrap(cerr.ErrStorage, werr, "writing %q", name)
			}
		}
		czero.Bytes(body)

		if typ == cwire.UploadEnd {
			f.Close()
			if failure != nil {
				storage.AbortTemp(name)
				return sealError(sess, failure)
			}
			if cerr2 := storage.CommitTempTo(name); cerr2 != nil {
				return sealError(sess, cerr2)
			}
			return sess.Seal(cwire.UploadRes,
				[]byte(fmt.Sprintf("uploaded %d bytes", total)))
		}
		// continue consuming chunks to keep seq in lockstep, per
		// spec.md §4.4, even after a failure has been recorded.
	}
}

func serverDownload(sess *csession.Session, storage *cstore.Storage, reqBody []byte) error {
	name, err := DecodeFilename(reqBody)
	if err != nil {
		return sealError(sess, err)
	}
	name, err = cstore.ValidateFilename(name)
	if err != nil {
		return sealError(sess, err)
	}

	f, size, err := storage.OpenRead(name)
	if err != nil {
		return sealError(sess, err)
	}
	defer f.Close()

	if err = sess.Seal(cwire.DownloadAns,
		[]byte(fmt.Sprintf("sending %d bytes", size))); err != nil {
		return err
	}

	buf := make([]byte, csession.ChunkSize)
	defer czero.Bytes(buf)

	for {
		n, rerr := io.ReadFull(f, buf)
		switch {
		case rerr == nil:
			if err = sess.Seal(cwire.DownloadChunk, buf[:n]); err != nil {
				return err
			}
		case rerr == io.ErrUnexpectedEOF || rerr == io.EOF:
			return sess.Seal(cwire.DownloadEnd, buf[:n])
		default:
			// local disk failure mid-stream is command-local per
			// spec.md §7 ("Io ... on a local file during upload/download
			// -> command-local, report peer via Error"); but the stream
			// has already committed to DownloadChunk/DownloadEnd framing,
			// so the only way to report it without desynchronizing seq
			// is to end the stream now.
			return sess.Seal(cwire.DownloadEnd, nil)
		}
	}
}

func serverRename(sess *csession.Session, storage *cstore.Storage, reqBody []byte) error {
	oldName, newName, err := splitRenamePlaintext(reqBody)
	if err == nil {
		oldName, err = cstore.ValidateFilename(oldName)
	}
	if err == nil {
		newName, err = cstore.ValidateFilename(newName)
	}
	if err == nil {
		err = storage.Rename(oldName, newName)
	}
	if err != nil {
		return sess.Seal(cwire.RenameAns, []byte(err.Error()))
	}
	return sess.Seal(cwire.RenameAns, []byte("renamed"))
}

func splitRenamePlaintext(body []byte) (oldName, newName string, err error) {
	i := bytes.IndexByte(body, 0)
	if i < 0 {
		return "", "", cerr.Wrap(cerr.ErrProtocol, nil, "malformed rename request")
	}
	oldName = string(body[:i])
	rest := body[i+1:]
	if j := bytes.IndexByte(rest, 0); j >= 0 {
		newName = string(rest[:j])
	} else {
		newName = string(rest)
	}
	if len(oldName) == 0 || len(newName) == 0 {
		err = cerr.Wrap(cerr.ErrProtocol, nil, "malformed rename request")
	}
	return
}

func serverDelete(sess *csession.Session, storage *cstore.Storage, reqBody []byte) error {
	name, err := DecodeFilename(reqBody)
	if err != nil {
		return sealError(sess, err)
	}
	name, err = cstore.ValidateFilename(name)
	if err != nil {
		return sealError(sess, err)
	}
	if !storage.Exists(name) {
		return sealError(sess, cerr.Wrap(cerr.ErrPolicy, nil, "%q does not exist", name))
	}

	if err = sess.Seal(cwire.DeleteAns,
		[]byte(fmt.Sprintf("delete %q? (y/n)", name))); err != nil {
		return err
	}

	_, confirm, operr := sess.Open(cwire.DeleteConfirm)
	if operr != nil {
		return operr
	}

	if strings.ToLower(strings.TrimSpace(string(confirm))) == "y" {
		if derr := storage.Delete(name); derr != nil {
			return sess.Seal(cwire.DeleteRes, []byte(derr.Error()))
		}
		return sess.Seal(cwire.DeleteRes, []byte("deleted"))
	}
	return sess.Seal(cwire.DeleteRes, []byte("cancelled"))
}

func serverLogout(sess *csession.Session) error {
	err := sess.Seal(cwire.LogoutAns, nil)
	sess.Close()
	return err
}
