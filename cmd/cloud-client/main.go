// cloud-client is the interactive counterpart to cloud-server: it opens
// one long-lived authenticated session and drives it from a line-based
// command menu until Logout or a fatal session error.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/tredeske/cloudbox/uconfig"
	"github.com/tredeske/cloudbox/uexit"
	"github.com/tredeske/cloudbox/ulog"
	"github.com/tredeske/cloudbox/unet"
	"github.com/tredeske/cloudbox/usync"

	"github.com/tredeske/cloudbox/cauth"
	"github.com/tredeske/cloudbox/csession"
	"github.com/tredeske/cloudbox/ctransfer"
	"github.com/tredeske/cloudbox/czero"
)

const (
	defaultHost = "127.0.0.1"
	defaultPort = "8080"
)

func envDefault(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && 0 != len(v) {
		return v
	}
	return fallback
}

func main() {
	var (
		addrFlag = flag.String("addr", "", "server address (HOST:PORT); overrides CLOUD_HOST/CLOUD_PORT")
		userFlag = flag.String("user", "", "username; overrides CLOUD_USER")
		pskFlag  = flag.String("psk", "", "path to this user's pre-shared secret file; overrides CLOUD_PSK")
		rateFlag = flag.String("rate", "", "bandwidth cap in bytes/sec (SI suffix ok, e.g. 200Ki), empty for unlimited")
	)
	flag.Parse()

	var rateLimit int64
	if 0 != len(*rateFlag) {
		if err := uconfig.IntFromByteSizeString(*rateFlag, &rateLimit); err != nil {
			ulog.Fatalf("bad -rate %q: %s", *rateFlag, err)
		}
	}

	addr := *addrFlag
	if 0 == len(addr) {
		addr = envDefault("CLOUD_HOST", "") + ":" + envDefault("CLOUD_PORT", "")
	}
	addr, err := uconfig.EnsureAddr(defaultHost, defaultPort, addr)
	if err != nil {
		ulog.Fatalf("bad server address: %s", err)
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		ulog.Fatalf("bad server address %q: %s", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		ulog.Fatalf("bad server port %q: %s", portStr, err)
	}

	username := *userFlag
	if 0 == len(username) {
		username = envDefault("CLOUD_USER", "")
	}
	if 0 == len(username) {
		ulog.Fatalf("no username given; use -user or CLOUD_USER")
	}

	pskPath := *pskFlag
	if 0 == len(pskPath) {
		pskPath = envDefault("CLOUD_PSK", "")
	}
	if 0 == len(pskPath) {
		ulog.Fatalf("no PSK file given; use -psk or CLOUD_PSK")
	}
	psk, err := cauth.LoadClientPSK(pskPath)
	if err != nil {
		ulog.Fatalf("loading PSK: %s", err)
	}
	defer czero.Bytes(psk)

	conn := unet.NewSocket()
	err = conn.
		ResolveFarAddr(host, port).
		ConstructTcp().
		Connect().
		Error
	if err != nil {
		ulog.Fatalf("connecting to %s: %s", addr, err)
	}
	defer conn.Close()

	key, initSeq, err := cauth.ClientHandshake(conn, username, psk)
	if err != nil {
		ulog.Fatalf("handshake: %s", err)
	}
	defer czero.Array32(&key)

	sess, err := csession.New(conn, key, initSeq)
	if err != nil {
		ulog.Fatalf("establishing session: %s", err)
	}
	defer sess.Close()
	if rateLimit > 0 {
		sess.SetRateLimit(rateLimit)
	}

	var interrupted usync.AtomicBool
	exitNotifyC, exitReplyC := uexit.AtExit()
	go func() {
		<-exitNotifyC
		interrupted.Set()
		exitReplyC <- true
	}()

	fmt.Printf("connected to %s as %q\n", addr, username)
	runMenu(sess, func() bool { return interrupted.IsSet() })
}

func runMenu(sess *csession.Session, interrupted ctransfer.Interrupted) {
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		if interrupted() {
			fmt.Println("interrupted, logging out")
			logout(sess)
			return
		}
		if sess.NearWrap() {
			fmt.Println("session sequence number nearing wraparound, logging out")
			logout(sess)
			return
		}

		fmt.Print("cloud> ")
		if !in.Scan() {
			logout(sess)
			return
		}
		fields := strings.Fields(in.Text())
		if 0 == len(fields) {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "list", "ls":
			runList(sess)
		case "upload", "put":
			if len(fields) != 3 {
				fmt.Println("usage: upload LOCAL_PATH REMOTE_NAME")
				continue
			}
			runUpload(sess, fields[1], fields[2], interrupted)
		case "download", "get":
			if len(fields) != 3 {
				fmt.Println("usage: download REMOTE_NAME LOCAL_PATH")
				continue
			}
			runDownload(sess, fields[1], fields[2])
		case "rename", "mv":
			if len(fields) != 3 {
				fmt.Println("usage: rename OLD_NAME NEW_NAME")
				continue
			}
			runRename(sess, fields[1], fields[2])
		case "delete", "rm":
			if len(fields) != 2 {
				fmt.Println("usage: delete REMOTE_NAME")
				continue
			}
			runDelete(sess, in, fields[1])
		case "logout", "quit", "exit":
			logout(sess)
			return
		case "help":
			printHelp()
		default:
			fmt.Printf("unknown command %q; try 'help'\n", fields[0])
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  list
  upload LOCAL_PATH REMOTE_NAME
  download REMOTE_NAME LOCAL_PATH
  rename OLD_NAME NEW_NAME
  delete REMOTE_NAME
  logout`)
}

func runList(sess *csession.Session) {
	files, status, err := ctransfer.ClientList(sess)
	if err != nil {
		ulog.Fatalf("session failed: %s", err)
	}
	if 0 != len(status) {
		fmt.Println(status)
		return
	}
	if 0 == len(files) {
		fmt.Println("(no files)")
		return
	}
	for _, f := range files {
		fmt.Println(f)
	}
}

func runUpload(sess *csession.Session, localPath, remoteName string, interrupted ctransfer.Interrupted) {
	f, err := os.Open(localPath)
	if err != nil {
		fmt.Printf("cannot open %q: %s\n", localPath, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fmt.Printf("cannot stat %q: %s\n", localPath, err)
		return
	}
	status, err := ctransfer.ClientUpload(sess, remoteName, f, info.Size(), interrupted)
	if err != nil {
		ulog.Fatalf("session failed: %s", err)
	}
	fmt.Println(status)
}

// runDownload writes to a sibling temp file and only renames it onto
// localPath once ClientDownload reports a complete transfer; a tampered
// or otherwise aborted download (spec.md §8 scenario 5) leaves no
// partial file behind.
func runDownload(sess *csession.Session, remoteName, localPath string) {
	tmpPath := localPath + ".part"
	f, err := os.Create(tmpPath)
	if err != nil {
		fmt.Printf("cannot create %q: %s\n", tmpPath, err)
		return
	}
	status, complete, err := ctransfer.ClientDownload(sess, remoteName, f)
	f.Close()
	if !complete {
		os.Remove(tmpPath)
	}
	if err != nil {
		ulog.Fatalf("session failed: %s", err)
	}
	if complete {
		if rerr := os.Rename(tmpPath, localPath); rerr != nil {
			ulog.Fatalf("finalizing download %q: %s", localPath, rerr)
		}
	}
	fmt.Println(status)
}

func runRename(sess *csession.Session, oldName, newName string) {
	status, err := ctransfer.ClientRename(sess, oldName, newName)
	if err != nil {
		ulog.Fatalf("session failed: %s", err)
	}
	fmt.Println(status)
}

func runDelete(sess *csession.Session, in *bufio.Scanner, remoteName string) {
	prompt, status, done, err := ctransfer.ClientDeleteRequest(sess, remoteName)
	if err != nil {
		ulog.Fatalf("session failed: %s", err)
	}
	if done {
		fmt.Println(status)
		return
	}

	fmt.Printf("%s ", prompt)
	confirm := ""
	if in.Scan() {
		confirm = in.Text()
	}

	status, err = ctransfer.ClientDeleteConfirm(sess, confirm)
	if err != nil {
		ulog.Fatalf("session failed: %s", err)
	}
	fmt.Println(status)
}

func logout(sess *csession.Session) {
	if err := ctransfer.ClientLogout(sess); err != nil && err != io.EOF {
		ulog.Errorf("logout: %s", err)
	}
}
