package service_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/boxskill/internal/adapters/nlu"
	"github.com/okian/boxskill/internal/adapters/storage"
	service "github.com/okian/boxskill/internal/app"
	"github.com/okian/boxskill/internal/config"
	"github.com/okian/boxskill/internal/domain/cards"
	"github.com/okian/boxskill/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	minimalDocument = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Box uses AI.</w:t></w:r></w:p>
</w:body></w:document>`

	emptyDocument = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:tbl><w:tr><w:tc><w:p/></w:tc></w:tr></w:tbl><w:p><w:r><w:t></w:t></w:r></w:p>
</w:body></w:document>`
)

// fakeStorage serves a fixed file body and records metadata writes.
type fakeStorage struct {
	content     []byte
	downloadErr error
	outcome     storage.UpsertOutcome

	downloaded string
	readToken  string
	writeToken string
	fileID     string
	payload    any
	upserts    int
}

func (f *fakeStorage) Download(_ context.Context, file model.FileRef, token, dir string) (string, error) {
	f.readToken = token
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	f.downloaded = filepath.Join(dir, file.Name)
	return f.downloaded, os.WriteFile(f.downloaded, f.content, 0o600)
}

func (f *fakeStorage) UpsertMetadata(_ context.Context, fileID, token string, payload any) (storage.UpsertOutcome, error) {
	f.upserts++
	f.fileID = fileID
	f.writeToken = token
	f.payload = payload
	if f.outcome == "" {
		return storage.OutcomeCreated, nil
	}
	return f.outcome, nil
}

// fakeAnalyzer returns canned results and records what it was asked.
type fakeAnalyzer struct {
	result   model.Enrichment
	err      error
	calls    int
	text     string
	features nlu.Features
}

func (a *fakeAnalyzer) Analyze(_ context.Context, text string, f nlu.Features) (model.Enrichment, error) {
	a.calls++
	a.text = text
	a.features = f
	return a.result, a.err
}

func docxBytes(t *testing.T) []byte {
	t.Helper()
	return docxWith(t, minimalDocument)
}

func docxWith(t *testing.T, document string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.docx")
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	for name, body := range map[string]string{
		"[Content_Types].xml": `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"_rels/.rels": `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`,
		"word/document.xml": document,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func invocation() model.Invocation {
	return model.Invocation{
		Source: model.FileRef{Name: "report.docx", ID: "42"},
		Token: model.Tokens{
			Read:  model.AccessToken{AccessToken: "read-tok"},
			Write: model.AccessToken{AccessToken: "write-tok"},
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.NLUIAMKey = "key"
	cfg.URL = "https://nlu.example.com"
	cfg.WorkDir = t.TempDir()
	return cfg
}

func newService(t *testing.T, cfg *config.Config, store *fakeStorage, an *fakeAnalyzer) *service.Service {
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return service.New(cfg,
		service.WithStorageFactory(func(backend string) (storage.Storage, error) {
			if backend != storage.BackendBox {
				return nil, storage.ErrUnsupportedBackend
			}
			return store, nil
		}),
		service.WithAnalyzer(an),
		service.WithFormatter(cards.NewFormatter(cards.WithClock(func() time.Time { return clock }))),
		service.WithIDGenerator(func() string { return "run-1" }),
	)
}

func payloadCards(p any) []cards.Card {
	return p.(cards.Payload).Cards
}

func TestInvoke(t *testing.T) {
	Convey("Given a .docx upload and an NLU that finds one concept and one keyword", t, func() {
		cfg := testConfig(t)
		store := &fakeStorage{content: docxBytes(t)}
		an := &fakeAnalyzer{result: model.Enrichment{Concepts: []string{"AI"}, Keywords: []string{"Box"}}}
		svc := newService(t, cfg, store, an)

		Convey("When the skill is invoked", func() {
			res, err := svc.Invoke(context.Background(), invocation())

			Convey("Then it succeeds", func() {
				So(err, ShouldBeNil)
				So(res, ShouldResemble, model.Result{Status: "success"})
			})

			Convey("And the tokens go to the right calls", func() {
				So(store.readToken, ShouldEqual, "read-tok")
				So(store.writeToken, ShouldEqual, "write-tok")
				So(store.fileID, ShouldEqual, "42")
			})

			Convey("And the extracted text is sent with the configured features", func() {
				So(an.calls, ShouldEqual, 1)
				So(an.text, ShouldEqual, "Box uses AI.")
				So(an.features, ShouldResemble, nlu.Features{
					Concepts: true, ConceptLimit: 10,
					Keywords: true, KeywordLimit: 10,
				})
			})

			Convey("And two keyword cards are written, concepts first", func() {
				list := payloadCards(store.payload)
				So(list, ShouldHaveLength, 2)
				So(list[0].Title.Message, ShouldEqual, "Concepts")
				So(list[0].Entries, ShouldResemble, []cards.Entry{{Type: "text", Text: "AI"}})
				So(list[1].Title.Message, ShouldEqual, "Keywords")
				So(list[1].Entries, ShouldResemble, []cards.Entry{{Type: "text", Text: "Box"}})
				So(list[0].Invocation.ID, ShouldEqual, "42")
				So(list[0].Duration, ShouldEqual, 1)
			})

			Convey("And the downloaded file is removed", func() {
				_, statErr := os.Stat(store.downloaded)
				So(os.IsNotExist(statErr), ShouldBeTrue)
				entries, _ := os.ReadDir(cfg.WorkDir)
				So(entries, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an NLU that returns only keywords", t, func() {
		store := &fakeStorage{content: docxBytes(t)}
		an := &fakeAnalyzer{result: model.Enrichment{Keywords: []string{"Box", "cloud"}}}
		svc := newService(t, testConfig(t), store, an)

		Convey("Then only the keywords card is written", func() {
			_, err := svc.Invoke(context.Background(), invocation())
			So(err, ShouldBeNil)
			list := payloadCards(store.payload)
			So(list, ShouldHaveLength, 1)
			So(list[0].Title.Message, ShouldEqual, "Keywords")
		})
	})

	Convey("Given a file that is not a .docx", t, func() {
		store := &fakeStorage{content: []byte("%PDF-1.4 not a word file")}
		an := &fakeAnalyzer{}
		svc := newService(t, testConfig(t), store, an)

		Convey("When the skill is invoked", func() {
			res, err := svc.Invoke(context.Background(), invocation())

			Convey("Then it still succeeds with an empty card list and no NLU call", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, "success")
				So(an.calls, ShouldEqual, 0)
				So(store.upserts, ShouldEqual, 1)
				So(payloadCards(store.payload), ShouldNotBeNil)
				So(payloadCards(store.payload), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a document with only empty cells and paragraphs", t, func() {
		store := &fakeStorage{content: docxWith(t, emptyDocument)}
		an := &fakeAnalyzer{result: model.Enrichment{Concepts: []string{"AI"}}}
		svc := newService(t, testConfig(t), store, an)

		Convey("Then no cards are produced and NLU is not called", func() {
			_, err := svc.Invoke(context.Background(), invocation())
			So(err, ShouldBeNil)
			So(an.calls, ShouldEqual, 0)
			So(payloadCards(store.payload), ShouldBeEmpty)
		})
	})

	Convey("Given an NLU failure", t, func() {
		store := &fakeStorage{content: docxBytes(t)}
		an := &fakeAnalyzer{err: errors.New("service unavailable")}
		svc := newService(t, testConfig(t), store, an)

		Convey("Then the failure is swallowed and empty cards are written", func() {
			res, err := svc.Invoke(context.Background(), invocation())
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, "success")
			So(payloadCards(store.payload), ShouldBeEmpty)
		})
	})

	Convey("Given a metadata update that fails", t, func() {
		store := &fakeStorage{content: docxBytes(t), outcome: storage.OutcomeFailed}
		an := &fakeAnalyzer{result: model.Enrichment{Concepts: []string{"AI"}}}
		svc := newService(t, testConfig(t), store, an)

		Convey("Then the invocation still reports success", func() {
			res, err := svc.Invoke(context.Background(), invocation())
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, "success")
		})
	})

	Convey("Given an unsupported storage backend", t, func() {
		cfg := testConfig(t)
		cfg.Storage = "dropbox"
		store := &fakeStorage{}
		svc := newService(t, cfg, store, &fakeAnalyzer{})

		Convey("Then the invocation fails before any download", func() {
			_, err := svc.Invoke(context.Background(), invocation())
			So(errors.Is(err, service.ErrStorage), ShouldBeTrue)
			So(errors.Is(err, storage.ErrUnsupportedBackend), ShouldBeTrue)
			So(store.readToken, ShouldBeEmpty)
		})
	})

	Convey("Given a download failure", t, func() {
		cfg := testConfig(t)
		store := &fakeStorage{downloadErr: errors.New("404 not found")}
		svc := newService(t, cfg, store, &fakeAnalyzer{})

		Convey("Then the error is returned, nothing is written and no temp dir is left", func() {
			_, err := svc.Invoke(context.Background(), invocation())
			So(errors.Is(err, service.ErrDownload), ShouldBeTrue)
			So(store.upserts, ShouldEqual, 0)
			entries, _ := os.ReadDir(cfg.WorkDir)
			So(entries, ShouldBeEmpty)
		})
	})

	Convey("Given an invocation without a file id", t, func() {
		svc := newService(t, testConfig(t), &fakeStorage{}, &fakeAnalyzer{})

		Convey("Then it is rejected", func() {
			_, err := svc.Invoke(context.Background(), model.Invocation{})
			So(errors.Is(err, model.ErrMissingFileID), ShouldBeTrue)
		})
	})
}
