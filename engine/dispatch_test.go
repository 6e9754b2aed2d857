package engine

import (
	"os"
	"testing"
)

func TestOfficeOrientation(t *testing.T) {
	cases := []struct {
		fileType string
		want     string
	}{
		{"document/office/word", orientationPortrait},
		{"document/office/rtf", orientationPortrait},
		{"document/office/excel", orientationLandscape},
		{"document/office/powerpoint", orientationLandscape},
	}
	for _, tc := range cases {
		if got := officeOrientation(tc.fileType); got != tc.want {
			t.Errorf("officeOrientation(%s) = %s, want %s", tc.fileType, got, tc.want)
		}
	}
}

func TestDispatchUnsupportedType(t *testing.T) {
	sh := newTestHandler(t)
	sub := newTestSubmission(t, "executable/linux/elf64", SubmissionParams{})

	artifacts, err := sh.dispatch(sub)
	if err != nil {
		t.Fatalf("unsupported type must not error: %v", err)
	}
	if artifacts != nil {
		t.Errorf("unsupported type must yield no artifacts, got %+v", artifacts)
	}
}

func TestDispatchPDFIsIdentity(t *testing.T) {
	sh := newTestHandler(t)
	sub := newTestSubmission(t, "document/pdf", SubmissionParams{})
	if err := os.WriteFile(sub.FilePath, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	artifacts, err := sh.dispatch(sub)
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 1 || artifacts[0].Kind != ArtifactPDF || artifacts[0].Path != sub.FilePath {
		t.Errorf("artifacts = %+v, want the input file itself", artifacts)
	}
}

func TestDispatchImageIsAdoptedDirectly(t *testing.T) {
	sh := newTestHandler(t)
	sub := newTestSubmission(t, "image/png", SubmissionParams{})

	artifacts, err := sh.dispatch(sub)
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 1 || artifacts[0].Kind != ArtifactImage {
		t.Errorf("artifacts = %+v, want one image artifact", artifacts)
	}
}

func TestDispatchEmailSniffsHTMLBody(t *testing.T) {
	sh := newTestHandler(t)
	browser := &stubBrowser{pdfData: []byte("%PDF")}
	sh.Browser = browser
	sub := newTestSubmission(t, "document/email", SubmissionParams{MaxPagesRendered: 5})

	artifacts, err := sh.dispatchEmail(sub, []byte("<html><body>lure</body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 1 || artifacts[0].Kind != ArtifactPDF {
		t.Fatalf("artifacts = %+v, want browser-rendered pdf", artifacts)
	}
	if browser.printCalls != 1 {
		t.Errorf("browser print calls = %d, want 1", browser.printCalls)
	}
}

func TestDispatchPlainEmailWithoutBrowser(t *testing.T) {
	// No browser, no attached images: nothing to draw, so the email
	// gets no preview rather than an error.
	sh := newTestHandler(t)
	sub := newTestSubmission(t, "document/email", SubmissionParams{})

	eml := []byte("Subject: hello\nFrom: a@b.example\n\nplain text body\n")
	artifacts, err := sh.dispatchEmail(sub, eml)
	if err != nil {
		t.Fatal(err)
	}
	if artifacts != nil {
		t.Errorf("artifacts = %+v, want none", artifacts)
	}
}

func TestMsgToEMLRejectsGarbage(t *testing.T) {
	sh := newTestHandler(t)
	path := newTestSubmission(t, "document/office/email", SubmissionParams{}).FilePath
	if err := os.WriteFile(path, []byte("not an ole2 container"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := sh.msgToEML(path); err == nil {
		t.Error("expected error for non-MSG input")
	}
}
