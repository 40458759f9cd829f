// cloud-server accepts TCP connections and hands each one off to its own
// goroutine, which runs the bootstrap handshake and then the command
// dispatcher.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tredeske/cloudbox"
	"github.com/tredeske/cloudbox/uconfig"
	"github.com/tredeske/cloudbox/uexit"
	"github.com/tredeske/cloudbox/ulog"
	"github.com/tredeske/cloudbox/unet"
	"github.com/tredeske/cloudbox/usched"

	"github.com/tredeske/cloudbox/cauth"
	"github.com/tredeske/cloudbox/csession"
	"github.com/tredeske/cloudbox/csession/userlock"
	"github.com/tredeske/cloudbox/cstore"
	"github.com/tredeske/cloudbox/ctransfer"
	"github.com/tredeske/cloudbox/czero"
)

// activeSessions tracks in-flight connections so a shutdown signal can
// wait, up to drainTimeout, for them to end.
var activeSessions int64

// drainTimeout bounds how long shutdown waits for in-flight sessions.
const drainTimeout = 30 * time.Second

const (
	defaultHost    = "0.0.0.0"
	defaultPort    = "8080"
	defaultBacklog = 64
)

func envDefault(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && 0 != len(v) {
		return v
	}
	return fallback
}

func main() {
	var (
		addrFlag      = flag.String("addr", "", "listen address (HOST:PORT); default 0.0.0.0:8080")
		storageFlag   = flag.String("storage", "", "storage root directory; overrides CLOUD_STORAGE")
		accountFlag   = flag.String("accounts", "", "account/PSK directory; overrides CLOUD_ACCOUNTS")
		sweepFlag     = flag.String("sweep", "@every 15m", "temp file sweep interval, cron/usched syntax")
		debugFlag     = flag.Bool("debug", false, "enable debug logging")
		provisionFlag = flag.String("provision", "", "create a new account's pre-shared secret and exit")
		rateFlag      = flag.String("rate", "", "per-session bandwidth cap in bytes/sec (SI suffix ok, e.g. 1Mi), empty for unlimited")
		logFlag       = flag.String("logfile", "", "log file path, or 'stdout'; overrides CLOUD_LOGFILE")
	)
	flag.Parse()
	ulog.DebugEnabled = *debugFlag

	logFile := *logFlag
	if 0 == len(logFile) {
		logFile = envDefault("CLOUD_LOGFILE", "")
	}
	if 0 != len(logFile) {
		if err := ulog.Init(logFile, 0, 0); err != nil {
			ulog.Fatalf("opening log file %q: %s", logFile, err)
		}
	}

	var rateLimit int64
	if 0 != len(*rateFlag) {
		if err := uconfig.IntFromByteSizeString(*rateFlag, &rateLimit); err != nil {
			ulog.Fatalf("bad -rate %q: %s", *rateFlag, err)
		}
	}

	accountDir := *accountFlag
	if 0 == len(accountDir) {
		accountDir = envDefault("CLOUD_ACCOUNTS", "./cloud-accounts")
	}
	psks, err := cauth.NewPSKStore(accountDir)
	if err != nil {
		ulog.Fatalf("opening account store: %s", err)
	}

	if 0 != len(*provisionFlag) {
		psk, perr := psks.Provision(*provisionFlag)
		if perr != nil {
			ulog.Fatalf("provisioning %q: %s", *provisionFlag, perr)
		}
		fmt.Printf("%x\n", psk)
		czero.Bytes(psk)
		return
	}

	addr, err := uconfig.EnsureAddr(defaultHost, defaultPort, *addrFlag)
	if err != nil {
		ulog.Fatalf("bad listen address: %s", err)
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		ulog.Fatalf("bad listen address %q: %s", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		ulog.Fatalf("bad listen port %q: %s", portStr, err)
	}

	storageRoot := *storageFlag
	if 0 == len(storageRoot) {
		storageRoot = envDefault("CLOUD_STORAGE", "./server/storage")
	}

	if err = os.MkdirAll(storageRoot, 0700); err != nil {
		ulog.Fatalf("creating storage root %q: %s", storageRoot, err)
	}
	swept, err := cstore.SweepTemp(storageRoot)
	if err != nil {
		ulog.Errorf("startup temp sweep: %s", err)
	} else if swept > 0 {
		ulog.Printf("swept %d orphaned temp file(s) at startup", swept)
	}

	sched := usched.NewScheduler()
	sched.Min = time.Minute
	err = sched.AddFunc("sweep-temp", *sweepFlag, func() {
		n, serr := cstore.SweepTemp(storageRoot)
		if serr != nil {
			ulog.Errorf("periodic temp sweep: %s", serr)
		} else if n > 0 {
			ulog.Printf("swept %d orphaned temp file(s)", n)
		}
	})
	if err != nil {
		ulog.Fatalf("scheduling temp sweep: %s", err)
	}
	sched.Start()
	defer sched.Stop()

	listener := unet.NewSocket()
	err = listener.
		ResolveNearAddr(host, port).
		ConstructTcp().
		SetOptReuseAddr().
		Bind().
		Listen(defaultBacklog).
		Error
	if err != nil {
		ulog.Fatalf("listening on %s: %s", addr, err)
	}
	ulog.Printf("cloud-server listening on %s, storage root %q", addr, storageRoot)

	locks := userlock.NewRegistry()
	ids := cloudbox.NewIdBuilder()

	uexit.WaitTime = drainTimeout
	go uexit.SimpleSignalHandling()
	go waitAndDrain()

	for {
		conn := unet.NewSocket()
		if aerr := listener.Accept(conn); aerr != nil {
			ulog.Errorf("accept: %s", aerr)
			continue
		}
		go serve(conn, ids.NewId(), psks, locks, storageRoot, rateLimit)
	}
}

// waitAndDrain registers with uexit so a shutdown signal waits, up to
// drainTimeout, for every in-flight session to end (logout or
// disconnect) before the process exits.
func waitAndDrain() {
	exitNotifyC, exitReplyC := uexit.AtExit()
	<-exitNotifyC
	ulog.Printf("shutting down, draining %d in-flight session(s)", atomic.LoadInt64(&activeSessions))
	err := cloudbox.Await(drainTimeout, func() (bool, error) {
		return 0 == atomic.LoadInt64(&activeSessions), nil
	})
	if err != nil {
		ulog.Warnf("drain timed out: %s", err)
	}
	exitReplyC <- true
}

func serve(conn *unet.Socket, sessionID string, psks *cauth.PSKStore, locks *userlock.Registry,
	storageRoot string, rateLimit int64,
) {
	defer conn.Close()
	atomic.AddInt64(&activeSessions, 1)
	defer atomic.AddInt64(&activeSessions, -1)

	username, key, initSeq, err := cauth.ServerHandshake(conn, psks.Lookup)
	if err != nil {
		ulog.Errorf("session %s: handshake failed: %s", sessionID, err)
		return
	}
	defer czero.Array32(&key)

	if err = locks.Acquire(username, sessionID); err != nil {
		ulog.Errorf("session %s: %s", sessionID, err)
		return
	}
	defer locks.Release(username, sessionID)

	sess, err := csession.New(conn, key, initSeq)
	if err != nil {
		ulog.Errorf("session %s: %s", sessionID, err)
		return
	}
	defer sess.Close()
	sess.Username = username
	if rateLimit > 0 {
		sess.SetRateLimit(rateLimit)
	}

	storage, err := cstore.Open(storageRoot, username)
	if err != nil {
		ulog.Errorf("session %s: opening storage for %q: %s", sessionID, username, err)
		return
	}

	ulog.DebugfFor("cloudbox", "session %s: %q authenticated", sessionID, username)

	loggedOut, err := ctransfer.RunServerLoop(sess, storage)
	switch {
	case err != nil:
		ulog.Errorf("session %s (%q): session ended: %s", sessionID, username, err)
	case loggedOut:
		ulog.DebugfFor("cloudbox", "session %s: %q logged out", sessionID, username)
	default:
		ulog.DebugfFor("cloudbox", "session %s: %q disconnected", sessionID, username)
	}
}
