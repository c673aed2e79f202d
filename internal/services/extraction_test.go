package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soochol/doctext/internal/convert"
	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestService(t *testing.T, conv convert.Converter, opts Options) (*ExtractionService, storage.ResultStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if opts.ReportDir == "" {
		opts.ReportDir = t.TempDir()
	}
	return NewExtractionService(store, conv, quietLogger(), opts), store
}

// fakeConverter writes fixed artifacts into its output dir.
type fakeConverter struct {
	out       string
	artifacts map[string]string
	err       error
	gotInput  string
	gotLimit  time.Duration
}

func (c *fakeConverter) OutputDir() string { return c.out }

func (c *fakeConverter) Convert(_ context.Context, inputDir string, timeout time.Duration) error {
	c.gotInput, c.gotLimit = inputDir, timeout
	if c.err != nil {
		return c.err
	}
	for name, body := range c.artifacts {
		if err := os.WriteFile(filepath.Join(c.out, name), []byte(body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// pagedDecoder returns two pages for every file.
type pagedDecoder struct{}

func (pagedDecoder) Format() doctext.Format { return doctext.FormatPDF }

func (pagedDecoder) Decode(_ context.Context, path string) (*doctext.Extraction, error) {
	return &doctext.Extraction{
		Filename: filepath.Base(path),
		Text:     "one two",
		Pages:    []string{"one", "two"},
	}, nil
}

type recordingRuns struct {
	records []doctext.RunRecord
}

func (r *recordingRuns) CreateRun(_ context.Context, rec *doctext.RunRecord) error {
	r.records = append(r.records, *rec)
	return nil
}

func TestExtractionService_Supported(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	for _, ext := range []string{"eml", "rtf", "doc", "docx", "pdf", "txt", ".pdf"} {
		if !svc.Supported(ext) {
			t.Errorf("Supported(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{"", "xlsx", "PDF!"} {
		if svc.Supported(ext) {
			t.Errorf("Supported(%q) = true, want false", ext)
		}
	}
}

func TestExtractionService_RunUnsupportedIsNoop(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	run, err := svc.Run(context.Background(), "xlsx", t.TempDir())
	if err != nil || run != nil {
		t.Fatalf("Run(xlsx) = (%v, %v), want (nil, nil)", run, err)
	}
}

func TestExtractionService_RunRTF(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "good.rtf", `{\rtf1 Hello World}`)
	writeFile(t, in, "bad.rtf", `{\rtf1 a}}`)
	writeFile(t, in, "skip.txt", "not an rtf")

	runs := &recordingRuns{}
	svc, store := newTestService(t, nil, Options{})
	svc.SetRunRecorder(runs)

	run, err := svc.Run(context.Background(), "rtf", in)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if run.ID == "" || run.Format != doctext.FormatRTF || run.InputDir != in {
		t.Errorf("unexpected run context: %+v", run)
	}
	if got := run.Session.SuccessCount(); got != 1 {
		t.Errorf("SuccessCount = %d, want 1", got)
	}
	if got := run.Session.ErrorCount(); got != 1 {
		t.Errorf("ErrorCount = %d, want 1", got)
	}
	if got := run.Session.Results()["good.rtf"]; got != "hello world" {
		t.Errorf("good.rtf text = %q, want %q", got, "hello world")
	}

	data, err := os.ReadFile(run.FailureReport)
	if err != nil {
		t.Fatalf("failure report: %v", err)
	}
	if want := ",RtfErrorFiles\n0,bad.rtf\n"; string(data) != want {
		t.Errorf("failure report = %q, want %q", data, want)
	}
	if filepath.Base(run.FailureReport) != "ErrorFileRtf_"+doctext.DateStamp(run.RunDate)+".csv" {
		t.Errorf("failure report name = %q", filepath.Base(run.FailureReport))
	}

	if len(runs.records) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(runs.records))
	}
	rec := runs.records[0]
	if rec.ID != run.ID || rec.Successes != 1 || rec.Failures != 1 || rec.CompletedAt == nil {
		t.Errorf("unexpected run record: %+v", rec)
	}

	if err := svc.Persist(context.Background(), run); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	saved, err := store.LoadResults(context.Background(), doctext.ResultsKey(doctext.FormatRTF, run.RunDate))
	if err != nil {
		t.Fatalf("LoadResults() error: %v", err)
	}
	if len(saved) != 1 || saved["good.rtf"] != "hello world" {
		t.Errorf("saved results = %v", saved)
	}
}

func TestExtractionService_RunPDFSavesPageIndex(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "a.pdf", "%PDF")
	writeFile(t, in, "b.pdf", "%PDF")

	svc, store := newTestService(t, nil, Options{})
	svc.decoders[doctext.FormatPDF] = pagedDecoder{}

	run, err := svc.Run(context.Background(), "pdf", in)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	pages, err := store.LoadPageIndex(context.Background(), doctext.PageIndexKey(doctext.FormatPDF, run.RunDate))
	if err != nil {
		t.Fatalf("LoadPageIndex() error: %v", err)
	}
	if len(pages) != 2 || pages[0].File != "a.pdf" || pages[1].File != "b.pdf" {
		t.Fatalf("page index = %+v", pages)
	}
	if got := pages[0].Keyed()["page 1"]; got != "two" {
		t.Errorf("page 1 = %q, want %q", got, "two")
	}
}

func TestExtractionService_RunDocUsesConverterArtifacts(t *testing.T) {
	in := t.TempDir()
	conv := &fakeConverter{
		out:       t.TempDir(),
		artifacts: map[string]string{"memo.csv": "HEADERHello   Doc", "ignored.doc": "x"},
	}
	svc, _ := newTestService(t, conv, Options{ConvertTimeout: 5 * time.Second})

	run, err := svc.Run(context.Background(), ".doc", in)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if conv.gotInput != in || conv.gotLimit != 5*time.Second {
		t.Errorf("converter called with (%q, %v)", conv.gotInput, conv.gotLimit)
	}
	results := run.Session.Results()
	if len(results) != 1 || results["memo.csv"] != "hello doc" {
		t.Errorf("results = %v", results)
	}
}

func TestExtractionService_RunDocConversionFailure(t *testing.T) {
	conv := &fakeConverter{out: t.TempDir(), err: convert.ErrTimeout}
	svc, _ := newTestService(t, conv, Options{})

	run, err := svc.Run(context.Background(), "doc", t.TempDir())
	if run != nil {
		t.Errorf("run = %+v, want nil", run)
	}
	if !errors.Is(err, ErrConversionFailed) || !errors.Is(err, convert.ErrTimeout) {
		t.Errorf("err = %v, want ErrConversionFailed wrapping ErrTimeout", err)
	}

	svc, _ = newTestService(t, nil, Options{})
	if _, err := svc.Run(context.Background(), "doc", t.TempDir()); !errors.Is(err, ErrConversionFailed) {
		t.Errorf("without converter err = %v, want ErrConversionFailed", err)
	}
}

func TestExtractionService_Merge(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "good.rtf", `{\rtf1 Hello World}`)
	writeFile(t, in, "other.rtf", `{\rtf1 Other}`)

	mappings := t.TempDir()
	svc, _ := newTestService(t, nil, Options{MappingDir: mappings})

	run, err := svc.Run(context.Background(), "rtf", in)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	path, err := svc.Merge(context.Background(), run)
	if err != nil || path != "" {
		t.Fatalf("Merge() without mapping = (%q, %v), want empty", path, err)
	}

	writeFile(t, mappings, "RtfMappingFile.csv", "files,label\ngood.rtf,A\nmissing.rtf,B\n")
	path, err = svc.Merge(context.Background(), run)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "files,label,raw_text\ngood.rtf,A,hello world\n"; string(data) != want {
		t.Errorf("merged = %q, want %q", data, want)
	}
}

func TestExtractionService_RunAll(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "good.rtf", `{\rtf1 Hello World}`)
	writeFile(t, in, "note.txt", "HEADERplain text")

	reports := t.TempDir()
	conv := &fakeConverter{out: t.TempDir(), err: errors.New("exited with code 2")}
	svc, store := newTestService(t, conv, Options{
		ReportDir:      reports,
		PersistResults: true,
		Workbook:       true,
	})

	runs, err := svc.RunAll(context.Background(), []string{"rtf", "doc", "xlsx", "txt"}, in)
	if !errors.Is(err, ErrConversionFailed) {
		t.Errorf("RunAll() err = %v, want ErrConversionFailed", err)
	}
	if len(runs) != 2 || runs[0].Format != doctext.FormatRTF || runs[1].Format != doctext.FormatTXT {
		t.Fatalf("runs = %+v", runs)
	}

	keys, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(keys, ",")
	if !strings.Contains(joined, "Rtf_") || !strings.Contains(joined, "Txt_") {
		t.Errorf("stored keys = %v", keys)
	}

	if _, err := os.Stat(filepath.Join(reports, "DataPipelineResults_"+doctext.DateStamp(runs[0].RunDate)+".xlsx")); err != nil {
		t.Errorf("workbook not written: %v", err)
	}
}

func TestExtractionService_RunAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc, _ := newTestService(t, nil, Options{})
	_, err := svc.RunAll(ctx, []string{"rtf", "txt"}, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunAll() err = %v, want context.Canceled", err)
	}
}

// cancellingDecoder cancels the run's context while decoding its first file.
type cancellingDecoder struct {
	cancel context.CancelFunc
}

func (cancellingDecoder) Format() doctext.Format { return doctext.FormatRTF }

func (d cancellingDecoder) Decode(_ context.Context, path string) (*doctext.Extraction, error) {
	d.cancel()
	return &doctext.Extraction{Filename: filepath.Base(path), Text: "done"}, nil
}

func TestExtractionService_RunAllKeepsRunCancelledMidway(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "a.rtf", `{\rtf1 a}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, _ := newTestService(t, nil, Options{})
	svc.decoders[doctext.FormatRTF] = cancellingDecoder{cancel: cancel}

	runs, err := svc.RunAll(ctx, []string{"rtf", "txt"}, in)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunAll() err = %v, want context.Canceled", err)
	}
	if len(runs) != 1 || runs[0].Format != doctext.FormatRTF {
		t.Fatalf("runs = %+v, want the cancelled rtf run", runs)
	}
	if got := runs[0].Session.Results()["a.rtf"]; got != "done" {
		t.Errorf("a.rtf text = %q, want %q", got, "done")
	}
}

func TestNewExtractionService_Defaults(t *testing.T) {
	svc := NewExtractionService(nil, nil, quietLogger(), Options{})
	if svc.opts.ReportDir != DefaultReportDir {
		t.Errorf("ReportDir = %q, want %q", svc.opts.ReportDir, DefaultReportDir)
	}
	if svc.opts.Retry != DefaultRetryPolicy {
		t.Errorf("Retry = %+v, want DefaultRetryPolicy", svc.opts.Retry)
	}
	if svc.opts.ArtifactExt != DefaultArtifactExt {
		t.Errorf("ArtifactExt = %q, want %q", svc.opts.ArtifactExt, DefaultArtifactExt)
	}

	noRetry := RetryPolicy{MaxRetries: 0, InitialDelay: time.Millisecond}
	svc = NewExtractionService(nil, nil, quietLogger(), Options{Retry: noRetry})
	if svc.opts.Retry != noRetry {
		t.Errorf("Retry = %+v, want the explicit policy kept", svc.opts.Retry)
	}
}

func TestExtractionService_RunWritesReportToDefaultDir(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	in := t.TempDir()
	writeFile(t, in, "bad.rtf", `{\rtf1 a}}`)

	svc := NewExtractionService(nil, nil, quietLogger(), Options{})
	run, err := svc.Run(context.Background(), "rtf", in)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := filepath.Join(DefaultReportDir, "ErrorFileRtf_"+doctext.DateStamp(run.RunDate)+".csv")
	if run.FailureReport != want {
		t.Errorf("FailureReport = %q, want %q", run.FailureReport, want)
	}
	data, err := os.ReadFile(filepath.Join(wd, want))
	if err != nil {
		t.Fatalf("failure report: %v", err)
	}
	if string(data) != ",RtfErrorFiles\n0,bad.rtf\n" {
		t.Errorf("failure report = %q", data)
	}
}
