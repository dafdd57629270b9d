package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/internal/registry"
	"github.com/samcharles93/cisa/pkg/cisa"
)

func newTestEcho(t *testing.T, maxUpload int64) *echo.Echo {
	t.Helper()
	log := logger.Discard()
	reg, err := registry.Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })

	e := echo.New()
	NewServer(reg, log, maxUpload).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func testContainer(t *testing.T) []byte {
	t.Helper()
	body := cisa.NewKernelBody("scale", []byte{0xca, 0xfe}).
		Append("strings", cisa.NewStringPool("src")).
		SetChildren("surfaces", cisa.NewRecord(cisa.KindSurfaceInfo).SetInt("name_index", 1).SetInt("num_elements", 4)).
		SetChildren("inputs", cisa.NewInput(2, 1, 0, 8))
	buf, err := cisa.NewBuilder(cisa.Version{Major: 3, Minor: 6}).
		AddKernel(cisa.KernelSpec{
			Name:           "scale",
			Body:           body,
			FunctionRelocs: []*cisa.Record{cisa.NewRelocation(0, 0)},
		}).
		AddFunction(cisa.FunctionSpec{
			Name: "helper",
			Body: cisa.NewFunctionBody("helper", []byte{1}).SetInt("input_size", 4).SetInt("return_size", 2),
		}).
		Bytes()
	if err != nil {
		t.Fatalf("build container: %v", err)
	}
	return buf
}

func upload(t *testing.T, e *echo.Echo) registry.Entry {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/v1/containers?name=scale.isa", testContainer(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected a request id header")
	}
	var entry registry.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if entry.ID == "" || entry.Name != "scale.isa" || entry.Version != "3.6" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	return entry
}

func TestContainerLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 0)
	entry := upload(t, e)

	listRec := do(t, e, http.MethodGet, "/v1/containers", nil)
	if listRec.Code != http.StatusOK || !strings.Contains(listRec.Body.String(), entry.ID) {
		t.Fatalf("list: got %d body=%s", listRec.Code, listRec.Body.String())
	}

	getRec := do(t, e, http.MethodGet, "/v1/containers/"+entry.ID, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}
	var got containerResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if len(got.Container.Kernels) != 1 || got.Container.Kernels[0].Name != "scale" {
		t.Fatalf("kernels: %+v", got.Container.Kernels)
	}
	if len(got.Container.Functions) != 1 || got.Container.Functions[0].Name != "helper" {
		t.Fatalf("functions: %+v", got.Container.Functions)
	}

	rawRec := do(t, e, http.MethodGet, "/v1/containers/"+entry.ID+"/raw", nil)
	if !bytes.Equal(rawRec.Body.Bytes(), testContainer(t)) {
		t.Fatalf("raw download differs from upload")
	}

	delRec := do(t, e, http.MethodDelete, "/v1/containers/"+entry.ID, nil)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", delRec.Body.String())
	}

	goneRec := do(t, e, http.MethodGet, "/v1/containers/"+entry.ID, nil)
	if goneRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%s", goneRec.Code, goneRec.Body.String())
	}
}

func TestKernelEndpoints(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 0)
	entry := upload(t, e)
	base := "/v1/containers/" + entry.ID

	rec := do(t, e, http.MethodGet, base+"/kernels/scale", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("kernel body status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var body BodyView
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode kernel body: %v", err)
	}
	if body.Name != "scale" || body.InstructionBytes != 2 || len(body.Inputs) != 1 {
		t.Fatalf("kernel body: %+v", body)
	}
	if len(body.Surfaces) != 1 || body.Surfaces[0].Name != "src" {
		t.Fatalf("surfaces: %+v", body.Surfaces)
	}

	rec = do(t, e, http.MethodGet, base+"/kernels/scale/instructions", nil)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), []byte{0xca, 0xfe}) {
		t.Fatalf("instructions: got %d %x", rec.Code, rec.Body.Bytes())
	}

	rec = do(t, e, http.MethodGet, base+"/functions/helper", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"return_size":2`) {
		t.Fatalf("function body: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, base+"/kernels", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"scale"`) {
		t.Fatalf("kernel list: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, base+"/graph", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "helper") {
		t.Fatalf("graph: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, base+"/kernels/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing kernel, got %d", rec.Code)
	}
}

func TestUploadValidation(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 64)

	rec := do(t, e, http.MethodPost, "/v1/containers", nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "empty upload") {
		t.Fatalf("empty upload: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodPost, "/v1/containers", []byte("XXXX\x03\x02"))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid CISA magic") {
		t.Fatalf("bad magic: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodPost, "/v1/containers", testContainer(t))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/v1/containers/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: got %d body=%s", rec.Code, rec.Body.String())
	}
}
