package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/loganalyzer/urlreport/internal/analyzer"
	"github.com/loganalyzer/urlreport/internal/report"
)

type fakeConn struct {
	subject    string
	data       []byte
	publishErr error
	flushed    bool
	closed     bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.subject, f.data = subject, data
	return nil
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error {
	f.flushed = true
	return ctx.Err()
}

func (f *fakeConn) Close() { f.closed = true }

func sampleReport() report.Report {
	tbl := analyzer.NewTable(analyzer.MedianExact)
	tbl.Ingest("/a", 0.1)
	tbl.Ingest("/b", 0.2)
	return report.Build(analyzer.Summarize(tbl), report.Options{Size: 10})
}

func TestPublish(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{conn: fc, subject: "urlreport.reports"}

	r := sampleReport()
	if err := p.Publish(context.Background(), r); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if fc.subject != "urlreport.reports" || !fc.flushed {
		t.Errorf("subject = %q, flushed = %v", fc.subject, fc.flushed)
	}

	var got report.Report
	if err := json.Unmarshal(fc.data, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.RunID != r.RunID || len(got.Rows) != 2 || got.Rows[0].Path != "/b" {
		t.Errorf("payload = %+v", got)
	}

	p.Close()
	if !fc.closed {
		t.Error("Close should close the connection")
	}
}

func TestPublishError(t *testing.T) {
	boom := errors.New("connection closed")
	p := &Publisher{conn: &fakeConn{publishErr: boom}, subject: "s"}
	if err := p.Publish(context.Background(), sampleReport()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestPublishCancelled(t *testing.T) {
	p := &Publisher{conn: &fakeConn{}, subject: "s"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, sampleReport()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	if _, err := Connect("nats://127.0.0.1:1", "s"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
