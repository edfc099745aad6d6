// Package clamd provides a Go client for the clamd control protocol spoken
// by the ClamAV scanning daemon over a Unix domain socket or a TCP socket.
//
// The package has zero external runtime dependencies (stdlib only). Every
// operation dials its own connection, runs a single request/response
// exchange, and closes the socket, so a Client is safe for concurrent use
// from multiple goroutines.
//
// # Quick Start
//
//	client, err := clamd.NewClient("unix:///run/clamav/clamd.ctl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	outcome, err := client.ScanPath(ctx, "/srv/uploads", clamd.ScanModeContinue)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("infected: %v\n", outcome.AnyFound())
//
// In-memory or streamed content is scanned with the INSTREAM sub-protocol:
//
//	outcome, err := client.ScanStream(ctx, file)
package clamd
