package bytecode

import (
	"bytes"
	"testing"
)

func sampleSegment() *Segment {
	return &Segment{
		Name:       "classifier_push",
		LocalsSize: 8,
		MaxStack:   4,
		Code:       []byte{0x01, 0x02, 0x03, 0x04},
		PushOffset: 0,
		Exports:    []Export{{Name: "_push", Offset: 0}},
		LineMap:    []LineEntry{{IP: 0, Line: 12}, {IP: 2, Line: 13}},
	}
}

func TestWriteReadRoundTrips(t *testing.T) {
	in := sampleSegment()
	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out.Name != in.Name || out.LocalsSize != in.LocalsSize || out.MaxStack != in.MaxStack {
		t.Fatalf("header mismatch: got %+v", out)
	}
	if !bytes.Equal(out.Code, in.Code) {
		t.Fatalf("code mismatch: got %v want %v", out.Code, in.Code)
	}
	if len(out.Exports) != 1 || out.Exports[0].Name != "_push" {
		t.Fatalf("unexpected exports: %+v", out.Exports)
	}
	if len(out.LineMap) != 2 || out.LineMap[1].Line != 13 {
		t.Fatalf("unexpected line map: %+v", out.LineMap)
	}
}

func TestLineForReturnsZeroForUnmappedIP(t *testing.T) {
	s := sampleSegment()
	if line := s.LineFor(999); line != 0 {
		t.Fatalf("expected 0 for an unmapped ip, got %d", line)
	}
	if line := s.LineFor(2); line != 13 {
		t.Fatalf("expected line 13, got %d", line)
	}
}

func TestEntryReportsPushHandler(t *testing.T) {
	s := sampleSegment()
	off, ok := s.Entry(SectionPush)
	if !ok || off != 0 {
		t.Fatalf("expected a push entry at offset 0, got (%d, %v)", off, ok)
	}
	if _, ok := s.Entry(SectionPull); ok {
		t.Fatalf("expected no pull entry on a push-only segment")
	}
}

func TestReadRejectsTruncatedInput(t *testing.T) {
	in := sampleSegment()
	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-10])
	if _, err := Read(truncated); err == nil {
		t.Fatalf("expected an error reading a truncated segment")
	}
}
