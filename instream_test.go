package clamd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/clammyhq/clamd-client-go/internal/testutil"
)

func TestScanStream(t *testing.T) {
	t.Run("clean stream", func(t *testing.T) {
		daemon := startDaemon(t, map[string]testutil.Handler{
			"INSTREAM": testutil.Lines("stream: OK"),
		})
		client := newTestClient(t, daemon)

		outcome, err := client.ScanStream(context.Background(), bytes.NewReader([]byte("clean content")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v := outcome.Verdicts[0]
		if v.Path != "stream" || v.Status != StatusOK {
			t.Errorf("verdict = %+v, want stream OK", v)
		}
	})

	t.Run("infected stream", func(t *testing.T) {
		daemon := startDaemon(t, map[string]testutil.Handler{
			"INSTREAM": testutil.Lines("stream: Eicar-Test-Signature FOUND"),
		})
		client := newTestClient(t, daemon)

		outcome, err := client.ScanBytes(context.Background(), []byte(testutil.EICAR))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v := outcome.Verdicts[0]
		if v.Status != StatusFound || v.Detail != "Eicar-Test-Signature" {
			t.Errorf("verdict = %+v", v)
		}
		if !outcome.AnyFound() {
			t.Error("expected AnyFound")
		}
	})

	t.Run("payload arrives intact", func(t *testing.T) {
		daemon := startDaemon(t, map[string]testutil.Handler{
			"INSTREAM": testutil.Lines("stream: OK"),
		})
		client := newTestClient(t, daemon, WithChunkSize(16))

		payload := bytes.Repeat([]byte("0123456789abcdef-"), 50)
		if _, err := client.ScanBytes(context.Background(), payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		daemon.Close()

		reqs := daemon.Requests()
		if len(reqs) != 1 {
			t.Fatalf("requests = %d, want 1", len(reqs))
		}
		if !bytes.Equal(reqs[0].Body, payload) {
			t.Errorf("daemon received %d bytes, want %d intact", len(reqs[0].Body), len(payload))
		}
		if !reqs[0].Terminated {
			t.Error("zero-length terminator never arrived")
		}
	})
}

// For any source of length L the uploader must emit exactly ceil(L/chunkSize)
// non-terminal chunks followed by one zero-length terminator, with payload
// lengths summing to L.
func TestScanStreamChunking(t *testing.T) {
	const chunkSize = 8
	lengths := []int{0, 1, 7, 8, 9, 16, 25}

	for _, length := range lengths {
		daemon := startDaemon(t, map[string]testutil.Handler{
			"INSTREAM": testutil.Lines("stream: OK"),
		})
		client := newTestClient(t, daemon, WithChunkSize(chunkSize))

		payload := bytes.Repeat([]byte{0xAB}, length)
		if _, err := client.ScanBytes(context.Background(), payload); err != nil {
			t.Fatalf("length %d: unexpected error: %v", length, err)
		}
		daemon.Close()

		req := daemon.Requests()[0]
		wantChunks := (length + chunkSize - 1) / chunkSize
		if len(req.Chunks) != wantChunks {
			t.Errorf("length %d: chunks = %d, want %d", length, len(req.Chunks), wantChunks)
		}
		total := 0
		for _, n := range req.Chunks {
			if n == 0 {
				t.Errorf("length %d: zero-length chunk sent mid-stream", length)
			}
			total += n
		}
		if total != length {
			t.Errorf("length %d: chunk payloads sum to %d", length, total)
		}
		if !req.Terminated {
			t.Errorf("length %d: terminator missing", length)
		}
	}
}

// stutterReader returns empty reads between data to verify they are skipped,
// never framed as chunks.
type stutterReader struct {
	data  []byte
	calls int
}

func (r *stutterReader) Read(p []byte) (int, error) {
	r.calls++
	if r.calls%2 == 1 {
		return 0, nil
	}
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p[:min(len(p), 3)], r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestScanStreamSkipsEmptyReads(t *testing.T) {
	daemon := startDaemon(t, map[string]testutil.Handler{
		"INSTREAM": testutil.Lines("stream: OK"),
	})
	client := newTestClient(t, daemon)

	src := &stutterReader{data: []byte("some bytes to scan")}
	if _, err := client.ScanStream(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	daemon.Close()

	req := daemon.Requests()[0]
	for _, n := range req.Chunks {
		if n == 0 {
			t.Fatal("empty read was framed as a zero-length chunk")
		}
	}
	if string(req.Body) != "some bytes to scan" {
		t.Errorf("daemon received %q", req.Body)
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = nil
	return n, nil
}

func TestScanStreamSourceError(t *testing.T) {
	daemon := startDaemon(t, map[string]testutil.Handler{
		"INSTREAM": testutil.Lines("stream: OK"),
	})
	client := newTestClient(t, daemon, WithChunkSize(4))

	src := &failingReader{data: []byte("partial"), err: errors.New("disk gone")}
	_, err := client.ScanStream(context.Background(), src)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsIOError(err) {
		t.Errorf("expected io error, got %T: %v", err, err)
	}
	daemon.Close()

	// The terminator must not be sent for an aborted stream: the daemon has
	// to see the connection die, not a complete upload.
	req := daemon.Requests()[0]
	if req.Terminated {
		t.Error("aborted stream was terminated as if complete")
	}
}

// slowReader trickles fixed-size chunks with a pause between them, giving the
// daemon time to reject mid-stream.
type slowReader struct {
	chunks [][]byte
	delay  time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	n := copy(p, r.chunks[0])
	if n == len(r.chunks[0]) {
		r.chunks = r.chunks[1:]
	} else {
		r.chunks[0] = r.chunks[0][n:]
	}
	return n, nil
}

func TestScanStreamSizeLimit(t *testing.T) {
	daemon := startDaemon(t, map[string]testutil.Handler{
		"INSTREAM": testutil.Lines("stream: OK"),
	})
	daemon.SetStreamLimit(1000)
	client := newTestClient(t, daemon, WithChunkSize(1024))

	chunks := make([][]byte, 5)
	for i := range chunks {
		chunks[i] = bytes.Repeat([]byte{byte(i)}, 1024)
	}
	src := &slowReader{chunks: chunks, delay: 50 * time.Millisecond}

	_, err := client.ScanStream(context.Background(), src)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsBufferTooLong(err) {
		t.Errorf("expected buffer-too-long error, got %T: %v", err, err)
	}
	daemon.Close()

	// The upload must stop near the rejection point instead of exhausting
	// the source.
	req := daemon.Requests()[0]
	if len(req.Body) >= 5*1024 {
		t.Errorf("daemon consumed the whole %d-byte source after rejecting", len(req.Body))
	}
}

func TestScanStreamEmptyReply(t *testing.T) {
	daemon := startDaemon(t, map[string]testutil.Handler{
		"INSTREAM": testutil.Silent(),
	})
	client := newTestClient(t, daemon)

	_, err := client.ScanBytes(context.Background(), []byte("content"))
	if !IsProtocolError(err) {
		t.Errorf("expected protocol error, got %T: %v", err, err)
	}
}

func TestScanStreamFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		client, err := NewClient("localhost:3310")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = client.ScanStreamFile(context.Background(), "/nonexistent/file.bin")
		if !IsValidationError(err) {
			t.Errorf("expected validation error, got %T: %v", err, err)
		}
	})
}
