package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func wordDocument(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"_rels/.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`},
		{"word/document.xml", `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeCloud plays Box, IAM and NLU on one server.
type fakeCloud struct {
	doc []byte

	mu       sync.Mutex
	analyzed string
	metadata []byte
}

func (f *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/iam":
		_, _ = io.WriteString(w, `{"access_token":"iam","token_type":"Bearer","expires_in":3600}`)
	case r.URL.Path == "/v1/analyze":
		var req struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(body, &req)
		f.analyzed = req.Text
		_, _ = io.WriteString(w, `{"concepts":[{"text":"AI"}],"keywords":[{"text":"Box"}]}`)
	case r.URL.Path == "/files/42/content":
		_, _ = w.Write(f.doc)
	case strings.HasPrefix(r.URL.Path, "/files/42/metadata/global/boxSkillsCards") && r.Method == http.MethodPost:
		f.metadata = body
		w.WriteHeader(http.StatusCreated)
	default:
		http.NotFound(w, r)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "BOXSKILL_") {
			key := strings.SplitN(kv, "=", 2)[0]
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version", "--env-file", ""})

		convey.Convey("Then version prints the build version", func() {
			convey.So(cmd.Execute(), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldEqual, "boxskill dev\n")
		})
	})
}

func TestInvokeCommand(t *testing.T) {
	convey.Convey("Given fake Box and NLU services and a config file", t, func() {
		clearEnv(t)
		cloud := &fakeCloud{doc: wordDocument(t, "Box uses AI")}
		ts := httptest.NewServer(cloud)
		defer ts.Close()

		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "config.json")
		cfg := map[string]any{
			"storage":       "box",
			"nlu_iam_key":   "key",
			"url":           ts.URL,
			"iam_url":       ts.URL + "/iam",
			"box_api_url":   ts.URL,
			"keywords":      true,
			"keyword_limit": 5,
			"concepts":      true,
			"concept_limit": 5,
			"work_dir":      dir,
			"log_level":     "error",
		}
		data, _ := json.Marshal(cfg)
		convey.So(os.WriteFile(cfgPath, data, 0o600), convey.ShouldBeNil)

		payloadPath := filepath.Join(dir, "payload.json")
		payload := `{"value":{"source":{"name":"notes.docx","id":"42"},` +
			`"token":{"read":{"access_token":"r"},"write":{"access_token":"w"}},` +
			`"config":"` + filepath.ToSlash(cfgPath) + `"}}`
		convey.So(os.WriteFile(payloadPath, []byte(payload), 0o600), convey.ShouldBeNil)

		convey.Convey("When invoking once with the payload's config", func() {
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"invoke", "--payload", payloadPath, "--env-file", ""})
			err := cmd.Execute()

			convey.Convey("Then the result is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldEqual, "{\"status\":\"success\"}\n")
			})

			convey.Convey("And the text was analyzed and two cards were stored", func() {
				cloud.mu.Lock()
				defer cloud.mu.Unlock()
				convey.So(cloud.analyzed, convey.ShouldEqual, "Box uses AI")

				var stored struct {
					Cards []struct {
						Title struct {
							Message string `json:"message"`
						} `json:"skill_card_title"`
					} `json:"cards"`
				}
				convey.So(json.Unmarshal(cloud.metadata, &stored), convey.ShouldBeNil)
				convey.So(stored.Cards, convey.ShouldHaveLength, 2)
				convey.So(stored.Cards[0].Title.Message, convey.ShouldEqual, "Concepts")
				convey.So(stored.Cards[1].Title.Message, convey.ShouldEqual, "Keywords")
			})
		})

		convey.Convey("When the payload has no file id", func() {
			bad := filepath.Join(dir, "bad.json")
			convey.So(os.WriteFile(bad, []byte(`{"source":{}}`), 0o600), convey.ShouldBeNil)
			cmd := newRootCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs([]string{"invoke", "--payload", bad, "--config", cfgPath, "--env-file", ""})

			convey.Convey("Then the command fails", func() {
				convey.So(cmd.Execute(), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestServeMux(t *testing.T) {
	convey.Convey("Given the server mux", t, func() {
		clearEnv(t)
		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		convey.So(os.WriteFile(cfgPath, []byte("nlu_iam_key: key\nurl: https://nlu.example.com\n"), 0o600), convey.ShouldBeNil)
		cfg, log, err := setup(t.Context(), cfgPath)
		convey.So(err, convey.ShouldBeNil)
		mux := newMux(t.Context(), cfg, log)

		for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs"} {
			convey.Convey("Then GET "+path+" is served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})
		}

		convey.Convey("Then /run rejects malformed payloads", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", strings.NewReader("{")))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}
