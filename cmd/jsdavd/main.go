// Command jsdavd serves the in-memory reference WebDAV tree over HTTP:
// flag-configured, logrus for logging, a plain http.Server.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mcooley/jsDAV/basicauth"
	"github.com/mcooley/jsDAV/lockplugin"
	"github.com/mcooley/jsDAV/memtree"
	"github.com/mcooley/jsDAV/webdav"
)

var (
	addr     = flag.String("addr", "localhost:8765", "listen address")
	baseURI  = flag.String("base", "/", "base URI the server answers under")
	debug    = flag.Bool("debug", false, "enable debug logging")
	trace    = flag.Bool("trace", false, "enable trace logging")
	authUser = flag.String("user", "", "Basic-Auth username (empty = no auth)")
	authPass = flag.String("pass", "", "Basic-Auth password")
	quota    = flag.Int64("quota", -1, "reported quota-available-bytes (-1 = don't report quota)")
	lockTTL  = flag.Duration("lock-ttl", 5*time.Minute, "LOCK plugin token lifetime")
)

func main() {
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *trace {
		log.SetLevel(log.TraceLevel)
	} else if *debug {
		log.SetLevel(log.DebugLevel)
	}

	tree := memtree.NewTree(*quota)
	srv := webdav.NewServer(tree, *baseURI)
	srv.Log = log.StandardLogger()

	if *authUser != "" {
		srv.Use(basicauth.New("jsDAV", *authUser, *authPass))
	}
	srv.Use(lockplugin.New(*lockTTL))

	server := &http.Server{
		Addr:              *addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("Listening on %s", *addr)
	if err := server.ListenAndServe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
